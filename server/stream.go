package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/stream"
)

// Content types for the encoders' output.
const (
	ContentTypeJSON = "application/json"
	ContentTypeHex  = "text/plain; charset=utf-8"
)

// encodingErrorBody is sent for items that could not be serialized.
var encodingErrorBody = []byte(`{"error": "Internal Server Error"}`)

// StreamOption configures WriteStream.
type StreamOption func(*streamOptions)

type streamOptions struct {
	log     *logger.Logger
	metrics *observability.StreamMetrics
	route   string
}

// WithStreamLogger sets the logger for stream failures. Defaults to the
// global logger.
func WithStreamLogger(l *logger.Logger) StreamOption {
	return func(o *streamOptions) { o.log = l }
}

// WithStreamMetrics records chunks, bytes and failures on m.
func WithStreamMetrics(m *observability.StreamMetrics) StreamOption {
	return func(o *streamOptions) { o.metrics = m }
}

// WithRoute overrides the route label, which defaults to the matched path.
func WithRoute(route string) StreamOption {
	return func(o *streamOptions) { o.route = route }
}

// WriteStream sends it as the response body, flushing after every chunk.
//
// The status line goes out with the first chunk. A failed slot before that
// becomes an error response through RespondStreamError. A failed slot after
// it cannot change the status any more: the failure is logged, pulling stops
// and the client receives a truncated body. The sequence is always closed.
func WriteStream(c *gin.Context, contentType string, it stream.Iterator[[]byte], opts ...StreamOption) {
	o := streamOptions{route: c.FullPath()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}

	ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanStreamResponse,
		trace.WithAttributes(
			attribute.String(observability.AttrRoute, o.route),
			attribute.String(observability.AttrFormat, contentType),
		))
	defer span.End()
	log := o.log.WithContext(ctx)

	body := observability.Instrument(it, o.metrics, o.route)
	defer func() {
		if err := body.Close(); err != nil {
			log.Warn("Closing stream failed", logger.ErrorFields("stream.close", err))
		}
		chunks, bytes, _ := body.Stats()
		span.SetAttributes(
			attribute.Int(observability.AttrChunks, chunks),
			attribute.Int(observability.AttrBytes, bytes),
		)
	}()

	started := false
	for {
		chunk, ok, err := body.Next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			fields := streamErrorFields(o.route, err)
			if !started {
				log.Warn("Stream failed before response started", fields)
				RespondStreamError(c, err)
				return
			}
			span.SetAttributes(attribute.Bool(observability.AttrTruncated, true))
			if ctx.Err() != nil {
				log.Debug("Client went away", fields)
				return
			}
			log.Error("Stream failed after response started, body truncated", fields)
			return
		}
		if !ok {
			break
		}
		if !started {
			c.Header("Content-Type", contentType)
			c.Status(http.StatusOK)
			started = true
		}
		if _, err := c.Writer.Write(chunk); err != nil {
			log.Debug("Client went away", logger.ErrorFields("stream.write", err))
			return
		}
		c.Writer.Flush()
	}

	if !started {
		c.Header("Content-Type", contentType)
		c.Status(http.StatusOK)
		c.Writer.WriteHeaderNow()
	}
}

// RespondStreamError turns a stream failure into a response:
//
//   - a source error is answered the way the backend maps it, with the
//     AppError's status and JSON body;
//   - an encoding error is a 500 with {"error": "Internal Server Error"};
//   - a decoding error is a 500 with an empty body;
//   - any other error is a 500 with a plain-text "Stream error: <msg>".
func RespondStreamError(c *gin.Context, err error) {
	se, ok := stream.AsError(err)
	if !ok {
		c.String(http.StatusInternalServerError, "Stream error: %s", err.Error())
		c.Abort()
		return
	}

	switch se.Kind {
	case stream.KindSource:
		appErr, ok := apperrors.AsAppError(se.Err)
		if !ok {
			appErr = se.AppError()
		}
		respondAppError(c, se.StatusCode(), appErr)
	case stream.KindEncoding:
		c.Data(http.StatusInternalServerError, ContentTypeJSON, encodingErrorBody)
		c.Abort()
	default:
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

func streamErrorFields(route string, err error) map[string]interface{} {
	fields := map[string]interface{}{
		logger.FieldRoute: route,
		logger.FieldError: err.Error(),
	}
	if se, ok := stream.AsError(err); ok {
		fields[logger.FieldErrorKind] = se.Kind.String()
		fields[logger.FieldErrorCode] = string(se.AppError().Code)
	}
	return fields
}
