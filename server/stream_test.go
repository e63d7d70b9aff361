package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/stream"
)

type slot struct {
	v   int
	err error
}

// slots yields the scripted items and failures, then ends.
type slots struct {
	script []slot
	pos    int
	closed bool
}

func (s *slots) Next(_ context.Context) (int, bool, error) {
	if s.pos >= len(s.script) {
		return 0, false, nil
	}
	sl := s.script[s.pos]
	s.pos++
	if sl.err != nil {
		return 0, false, sl.err
	}
	return sl.v, true, nil
}

func (s *slots) Close() error {
	s.closed = true
	return nil
}

type teapot struct{}

func (teapot) Error() string   { return "short and stout" }
func (teapot) StatusCode() int { return http.StatusTeapot }

func serveStream(t *testing.T, contentType string, body func() stream.Iterator[[]byte]) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/stream", func(c *gin.Context) {
		WriteStream(c, contentType, body(), WithStreamLogger(logger.Nop()))
	})

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stream", http.NoBody))
	return rr
}

func TestWriteStream_Array(t *testing.T) {
	rr := serveStream(t, ContentTypeJSON, func() stream.Iterator[[]byte] {
		return stream.NewArrayEncoder(stream.FromSlice([]int{1, 2, 3}))
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != ContentTypeJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := rr.Body.String(); got != "[\n    1,\n    2,\n    3\n]" {
		t.Errorf("body = %q", got)
	}
	if !rr.Flushed {
		t.Error("expected chunks to be flushed")
	}
}

func TestWriteStream_ClosesSequence(t *testing.T) {
	src := &slots{script: []slot{{v: 1}}}
	serveStream(t, ContentTypeJSON, func() stream.Iterator[[]byte] {
		return stream.NewArrayEncoder[int](src)
	})
	if !src.closed {
		t.Error("inner sequence was not closed")
	}
}

func TestWriteStream_EmptyHexBody(t *testing.T) {
	rr := serveStream(t, ContentTypeHex, func() stream.Iterator[[]byte] {
		return stream.NewHexEncoder(stream.Empty[[]byte](), stream.CRLF)
	})
	if rr.Code != http.StatusOK || rr.Body.Len() != 0 {
		t.Fatalf("expected empty 200, got %d %q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != ContentTypeHex {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestWriteStream_ErrorBeforeFirstChunk(t *testing.T) {
	tests := []struct {
		name       string
		body       func() stream.Iterator[[]byte]
		wantStatus int
		wantType   string
		check      func(t *testing.T, body []byte)
	}{
		{
			name: "source error uses backend mapping",
			body: func() stream.Iterator[[]byte] {
				return stream.NewHexEncoder(stream.Fail[[]byte](apperrors.NotFound("blob", "7")), stream.LF)
			},
			wantStatus: http.StatusNotFound,
			wantType:   "application/json; charset=utf-8",
			check: func(t *testing.T, body []byte) {
				var resp apperrors.ErrorResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("invalid JSON %q: %v", body, err)
				}
				if resp.Error.Code != apperrors.ErrCodeNotFound {
					t.Errorf("code = %s", resp.Error.Code)
				}
			},
		},
		{
			name: "source error with own status code",
			body: func() stream.Iterator[[]byte] {
				return stream.NewHexEncoder(stream.Fail[[]byte](teapot{}), stream.LF)
			},
			wantStatus: http.StatusTeapot,
			wantType:   "application/json; charset=utf-8",
		},
		{
			name: "encoding error",
			body: func() stream.Iterator[[]byte] {
				return stream.Fail[[]byte](stream.EncodingError(errors.New("json: unsupported type")))
			},
			wantStatus: http.StatusInternalServerError,
			wantType:   "application/json",
			check: func(t *testing.T, body []byte) {
				if got, want := string(body), `{"error": "Internal Server Error"}`; got != want {
					t.Errorf("body = %q, want %q", got, want)
				}
			},
		},
		{
			name: "decoding error has empty body",
			body: func() stream.Iterator[[]byte] {
				return stream.NewHexDecoder(stream.FromSlice([][]byte{[]byte("zz")}))
			},
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, body []byte) {
				if len(body) != 0 {
					t.Errorf("expected empty body, got %q", body)
				}
			},
		},
		{
			name: "unclassified error",
			body: func() stream.Iterator[[]byte] {
				return stream.Fail[[]byte](errors.New("boom"))
			},
			wantStatus: http.StatusInternalServerError,
			wantType:   "text/plain; charset=utf-8",
			check: func(t *testing.T, body []byte) {
				if string(body) != "Stream error: boom" {
					t.Errorf("body = %q", body)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := serveStream(t, ContentTypeHex, tc.body)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			if tc.wantType != "" {
				if ct := rr.Header().Get("Content-Type"); ct != tc.wantType {
					t.Errorf("Content-Type = %q, want %q", ct, tc.wantType)
				}
			}
			if tc.check != nil {
				tc.check(t, rr.Body.Bytes())
			}
		})
	}
}

func TestWriteStream_ErrorAfterFirstChunkTruncates(t *testing.T) {
	src := &slots{script: []slot{{v: 1}, {err: apperrors.DatabaseError(errors.New("cursor lost"))}, {v: 2}}}
	rr := serveStream(t, ContentTypeJSON, func() stream.Iterator[[]byte] {
		return stream.NewArrayEncoder[int](src)
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status must stay 200 once the body started, got %d", rr.Code)
	}
	if got := rr.Body.String(); got != "[\n    1" {
		t.Errorf("body = %q, want the truncated prefix", got)
	}
	if src.pos != 2 {
		t.Errorf("pulled %d slots, want pulling to stop at the failure", src.pos)
	}
	if !src.closed {
		t.Error("inner sequence was not closed")
	}
}

func TestWriteStream_RecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	src := &slots{script: []slot{{v: 1}, {err: errors.New("lost")}}}
	serveStream(t, ContentTypeJSON, func() stream.Iterator[[]byte] {
		return stream.NewArrayEncoder[int](src)
	})

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != observability.SpanStreamResponse {
		t.Fatalf("expected one %s span, got %d", observability.SpanStreamResponse, len(spans))
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs[observability.AttrRoute].AsString() != "/stream" {
		t.Errorf("route attribute = %v", attrs[observability.AttrRoute])
	}
	if !attrs[observability.AttrTruncated].AsBool() {
		t.Error("expected truncated attribute")
	}
	if attrs[observability.AttrChunks].AsInt64() != 2 {
		t.Errorf("chunks attribute = %v", attrs[observability.AttrChunks])
	}
}
