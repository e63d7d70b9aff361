package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streamkit/database"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/stream"
)

func newTestAPI(t *testing.T, cfg stream.Config) (*gin.Engine, *database.DB) {
	t.Helper()
	dbCfg := database.Config{
		Enabled:     true,
		DSN:         fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxRetries:  1,
		AutoMigrate: true,
		LogLevel:    "silent",
	}
	comp := database.NewComponent(dbCfg, logger.Nop()).WithAutoMigrate(&Event{})
	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { _ = comp.Stop(context.Background()) })

	if err := Seed(context.Background(), comp.DB().GormDB); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandlers(comp, cfg, nil, logger.Nop()).Register(engine)
	return engine, comp.DB()
}

func get(engine http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func inUse(t *testing.T, db *database.DB) int {
	t.Helper()
	sqlDB, err := db.GormDB.DB()
	if err != nil {
		t.Fatalf("DB(): %v", err)
	}
	return sqlDB.Stats().InUse
}

func TestSeedIsIdempotent(t *testing.T) {
	_, db := newTestAPI(t, stream.Config{})
	if err := Seed(context.Background(), db.GormDB); err != nil {
		t.Fatalf("second Seed() failed: %v", err)
	}
	var n int64
	if err := db.GormDB.Model(&Event{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != int64(len(DemoEvents())) {
		t.Errorf("rows = %d, want %d", n, len(DemoEvents()))
	}
}

func TestListEvents(t *testing.T) {
	engine, db := newTestAPI(t, stream.Config{})

	w := get(engine, "/api/events")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got []Event
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("body is not a JSON array: %v\n%s", err, w.Body.String())
	}
	want := DemoEvents()
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != int64(i+1) || got[i].Category != want[i].Category || got[i].Name != want[i].Name {
			t.Errorf("event %d = %+v, want %s/%s", i, got[i], want[i].Category, want[i].Name)
		}
	}
	if n := inUse(t, db); n != 0 {
		t.Errorf("connections in use after response = %d", n)
	}
}

func TestEventsByCategory(t *testing.T) {
	engine, db := newTestAPI(t, stream.Config{})

	w := get(engine, "/api/events/by-category?labels=deploy,%20audit,missing")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got map[string][]Event
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("body is not a JSON object: %v\n%s", err, w.Body.String())
	}
	if len(got["deploy"]) != 2 || len(got["audit"]) != 1 {
		t.Errorf("groups = %v", got)
	}
	if g, ok := got["missing"]; !ok || len(g) != 0 {
		t.Errorf(`"missing" = %v (present %v), want empty array`, g, ok)
	}
	for _, e := range got["deploy"] {
		if e.Category != "deploy" {
			t.Errorf("deploy group holds %+v", e)
		}
	}
	if n := inUse(t, db); n != 0 {
		t.Errorf("pinned connection not returned, in use = %d", n)
	}
}

func TestEventsByCategoryRejectsBadLabels(t *testing.T) {
	engine, _ := newTestAPI(t, stream.Config{})

	for _, target := range []string{
		"/api/events/by-category",
		"/api/events/by-category?labels=deploy,deploy",
		"/api/events/by-category?labels=deploy,,alert",
	} {
		w := get(engine, target)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, w.Code)
		}
	}
}

func TestBlobs(t *testing.T) {
	engine, _ := newTestAPI(t, stream.Config{})

	tests := []struct {
		target string
		want   string
	}{
		{"/api/blobs", "00ff\r\n6469736b\r\ndeadbeef\r\n01"},
		{"/api/blobs?line_ending=crlf", "00ff\r\n6469736b\r\ndeadbeef\r\n01"},
		{"/api/blobs?line_ending=lf", "00ff\n6469736b\ndeadbeef\n01"},
	}
	for _, tt := range tests {
		w := get(engine, tt.target)
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", tt.target, w.Code)
			continue
		}
		if w.Body.String() != tt.want {
			t.Errorf("%s: body = %q, want %q", tt.target, w.Body.String(), tt.want)
		}
	}
}

func TestBlobsConfiguredLineEnding(t *testing.T) {
	engine, _ := newTestAPI(t, stream.Config{LineEnding: stream.LF})

	w := get(engine, "/api/blobs")
	if got, want := w.Body.String(), "00ff\n6469736b\ndeadbeef\n01"; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestBlobsUnknownLineEnding(t *testing.T) {
	engine, _ := newTestAPI(t, stream.Config{})

	w := get(engine, "/api/blobs?line_ending=cr")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestBlobsTruncatedWhenChunkTooLarge(t *testing.T) {
	// "00ff" fits; "\r\n6469736b" does not.
	engine, _ := newTestAPI(t, stream.Config{MaxHexChunk: 4})

	w := get(engine, "/api/blobs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (already committed)", w.Code)
	}
	if w.Body.String() != "00ff" {
		t.Errorf("body = %q, want truncated %q", w.Body.String(), "00ff")
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	engine, _ := newTestAPI(t, stream.Config{})

	for _, target := range []string{"/api/blobs/verify", "/api/blobs/verify?line_ending=lf"} {
		w := get(engine, target)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body = %s", target, w.Code, w.Body.String())
		}
		var res verifyResult
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatalf("%s: %v", target, err)
		}
		if res.Lines != 4 || res.Bytes != 11 {
			t.Errorf("%s: result = %+v, want 4 lines of 11 bytes", target, res)
		}
	}
}

func TestVerifySuppliedLines(t *testing.T) {
	engine, _ := newTestAPI(t, stream.Config{})

	w := get(engine, "/api/blobs/verify?hex=abcd&hex=%0A0102ff")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res verifyResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Lines != 2 || res.Bytes != 5 {
		t.Errorf("result = %+v, want 2 lines of 5 bytes", res)
	}
}

func TestVerifyRejectsTooManyLines(t *testing.T) {
	engine, _ := newTestAPI(t, stream.Config{})

	target := "/api/blobs/verify?hex=00" + strings.Repeat("&hex=00", maxVerifyLines)
	if w := get(engine, target); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestVerifyMalformedHex(t *testing.T) {
	engine, _ := newTestAPI(t, stream.Config{})

	w := get(engine, "/api/blobs/verify?hex=00ff&hex=zz")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestVerifyEncodingFailure(t *testing.T) {
	engine, _ := newTestAPI(t, stream.Config{MaxHexChunk: 4})

	w := get(engine, "/api/blobs/verify")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if got, want := w.Body.String(), `{"error": "Internal Server Error"}`; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestDatabaseUnavailable(t *testing.T) {
	comp := database.NewComponent(database.Config{Enabled: false}, logger.Nop())
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewHandlers(comp, stream.Config{}, nil, logger.Nop()).Register(engine)

	for _, target := range []string{"/api/events", "/api/events/by-category?labels=deploy", "/api/blobs", "/api/blobs/verify"} {
		w := get(engine, target)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", target, w.Code)
		}
	}
}
