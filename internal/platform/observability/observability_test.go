package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/maxg-dev/santiscl/internal/platform/requestctx"
)

func TestParseCloudTraceContext(t *testing.T) {
	sc, ok := parseCloudTraceContext("105445aa7843bc8bf206b12000100000/1;o=1")
	if !ok {
		t.Fatal("expected header to parse")
	}
	if sc.TraceID().String() != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("unexpected trace id %s", sc.TraceID())
	}
	if sc.SpanID().String() != "0000000000000001" {
		t.Fatalf("unexpected span id %s", sc.SpanID())
	}
	if !sc.IsSampled() || !sc.IsRemote() {
		t.Fatalf("expected sampled remote context")
	}

	for _, header := range []string{"", "abc/1", "105445aa7843bc8bf206b12000100000/zz", "105445aa7843bc8bf206b12000100000/0"} {
		if _, ok := parseCloudTraceContext(header); ok {
			t.Fatalf("expected %q to be rejected", header)
		}
	}
}

func TestTraceMiddlewareStoresTraceInfo(t *testing.T) {
	var got requestctx.TraceInfo
	handler := TraceMiddleware("santis")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/7;o=1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.ProjectID != "santis" {
		t.Fatalf("expected project id on trace info, got %+v", got)
	}
	if got.TraceID != "105445aa7843bc8bf206b12000100000" {
		t.Fatalf("expected incoming trace id to be continued, got %s", got.TraceID)
	}
}

func TestRecoveryMiddlewareWritesJSONError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	handler := RecoveryMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "internal_server_error" {
		t.Fatalf("unexpected body %v", body)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected panic to be logged, got %d entries", logs.Len())
	}
}

func TestRequestLoggerMiddlewareLogsRouteAndStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := chi.NewRouter()
	router.Use(InjectLoggerMiddleware(zap.New(core)), RequestLoggerMiddleware())
	router.Get("/products/{parentID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/mesa", nil))

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one completion entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "/products/{parentID}" {
		t.Fatalf("unexpected route %v", fields["route"])
	}
	if fields["status"] != int64(http.StatusNotFound) {
		t.Fatalf("unexpected status %v", fields["status"])
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for 404, got %s", entries[0].Level)
	}
}

func TestEventLoggerUsesContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	hook := EventLogger(zap.NewNop(), "catalog")
	ctx := requestctx.WithLogger(context.Background(), zap.New(core))

	hook(ctx, "catalog.parent.deleted", map[string]any{"parent_id": "mesa"})
	hook(ctx, "catalog.image.delete_failed", map[string]any{"error": errors.New("gone")})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if entries[0].LoggerName != "catalog" || entries[0].ContextMap()["parent_id"] != "mesa" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for error events, got %s", entries[1].Level)
	}
}

func TestCleanStripsControlCharactersAndTruncates(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{in: "/api/v1/public/products", limit: 180, want: "/api/v1/public/products"},
		{in: "GET\r\nX-Injected: 1", limit: 10, want: "GETX-Injec"},
		{in: "niño\x00uid", limit: 64, want: "niñouid"},
	}
	for _, tc := range cases {
		if got := clean(tc.in, tc.limit); got != tc.want {
			t.Fatalf("clean(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}
