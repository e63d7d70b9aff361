package events

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/database"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/server"
	"github.com/kbukum/streamkit/stream"
	"github.com/kbukum/streamkit/validation"
)

// Source hands out the started database, or nil while none is available.
// *database.Component satisfies it.
type Source interface {
	DB() *database.DB
}

// Handlers serves the events API.
type Handlers struct {
	src     Source
	cfg     stream.Config
	metrics *observability.StreamMetrics
	log     *logger.Logger
}

// NewHandlers creates the handlers. The database is looked up per request, so
// routes can be registered before it starts. metrics may be nil.
func NewHandlers(src Source, cfg stream.Config, metrics *observability.StreamMetrics, log *logger.Logger) *Handlers {
	cfg.ApplyDefaults()
	return &Handlers{src: src, cfg: cfg, metrics: metrics, log: log.WithComponent("events")}
}

// Register mounts the routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/events", h.list)
	api.GET("/events/by-category", h.byCategory)
	api.GET("/blobs", h.blobs)
	api.GET("/blobs/verify", h.verify)
}

func (h *Handlers) streamOptions() []server.StreamOption {
	return []server.StreamOption{
		server.WithStreamLogger(h.log),
		server.WithStreamMetrics(h.metrics),
	}
}

func (h *Handlers) store(c *gin.Context) (*database.DB, bool) {
	db := h.src.DB()
	if db == nil {
		server.RespondWithError(c, apperrors.ServiceUnavailable("database"))
		return nil, false
	}
	return db, true
}

// list streams every event as one JSON array over the shared pool.
func (h *Handlers) list(c *gin.Context) {
	db, ok := h.store(c)
	if !ok {
		return
	}
	rows := stream.Own(c.Request.Context(), db.Pool(), All())
	server.WriteStream(c, server.ContentTypeJSON, stream.NewArrayEncoder[Event](rows), h.streamOptions()...)
}

type categoryParams struct {
	Labels []string `form:"labels" validate:"required,min=1,max=20,unique,dive,required,max=64"`
}

// byCategory streams one labeled array per requested category. All of them
// run, one after the other, on a single pinned connection.
func (h *Handlers) byCategory(c *gin.Context) {
	params := categoryParams{Labels: splitLabels(c.Query("labels"))}
	if err := validation.Validate(params); err != nil {
		server.RespondWithError(c, err)
		return
	}
	db, ok := h.store(c)
	if !ok {
		return
	}

	ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanStreamBind,
		trace.WithAttributes(attribute.StringSlice(observability.AttrLabel, params.Labels)))
	conn, err := db.Acquire(ctx)
	span.End()
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	entries := make([]stream.Entry[string, *gorm.DB, Event], len(params.Labels))
	for i, label := range params.Labels {
		entries[i] = stream.Entry[string, *gorm.DB, Event]{Key: label, Query: InCategory(label)}
	}
	server.WriteStream(c, server.ContentTypeJSON, stream.NewObjectEncoder(conn, entries), h.streamOptions()...)
}

func splitLabels(raw string) []string {
	if raw == "" {
		return nil
	}
	labels := strings.Split(raw, ",")
	for i := range labels {
		labels[i] = strings.TrimSpace(labels[i])
	}
	return labels
}

// blobs streams every payload as one hex line.
func (h *Handlers) blobs(c *gin.Context) {
	ending, err := h.lineEnding(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	db, ok := h.store(c)
	if !ok {
		return
	}
	body := stream.NewHexEncoder(payloads(c.Request.Context(), db), ending, h.cfg.HexOptions()...)
	server.WriteStream(c, server.ContentTypeHex, body, h.streamOptions()...)
}

// Bounds on caller-supplied lines for /blobs/verify.
const (
	maxVerifyLines   = 64
	maxVerifyLineLen = 4096
)

type verifyResult struct {
	Lines int `json:"lines"`
	Bytes int `json:"bytes"`
}

// verify decodes hex lines and reports what they held. Lines come from the
// repeated "hex" parameter; without it the stored payloads are encoded and
// decoded again, which checks the round trip.
func (h *Handlers) verify(c *gin.Context) {
	ctx := c.Request.Context()

	var text stream.Iterator[[]byte]
	if lines := c.QueryArray("hex"); len(lines) > 0 {
		err := validation.New().
			MaxItems("hex", len(lines), maxVerifyLines).
			EachMaxLength("hex", lines, maxVerifyLineLen).
			Err()
		if err != nil {
			server.RespondWithError(c, err)
			return
		}
		chunks := make([][]byte, len(lines))
		for i, l := range lines {
			chunks[i] = []byte(l)
		}
		text = stream.FromSlice(chunks)
	} else {
		ending, err := h.lineEnding(c)
		if err != nil {
			server.RespondWithError(c, err)
			return
		}
		db, ok := h.store(c)
		if !ok {
			return
		}
		text = stream.NewHexEncoder(payloads(ctx, db), ending, h.cfg.HexOptions()...)
	}

	var res verifyResult
	err := stream.Drain(ctx, stream.NewHexDecoder(text), func(_ context.Context, b []byte) error {
		res.Lines++
		res.Bytes += len(b)
		return nil
	})
	if err != nil {
		h.log.WithContext(ctx).Warn("Hex verification failed", logger.ErrorFields("verify", err))
		server.RespondStreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func payloads(ctx context.Context, db *database.DB) stream.Iterator[[]byte] {
	rows := stream.Own(ctx, db.Pool(), Payloads())
	return stream.MapResult[payloadRow, []byte](rows, func(r payloadRow) []byte { return r.Payload }, nil)
}

func (h *Handlers) lineEnding(c *gin.Context) (stream.LineEnding, error) {
	raw, ok := c.GetQuery("line_ending")
	if !ok {
		return h.cfg.LineEnding, nil
	}
	ending, err := stream.ParseLineEnding(raw)
	if err != nil {
		return "", apperrors.InvalidFormat("line_ending", "crlf or lf").WithCause(err)
	}
	return ending, nil
}
