package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	vmetrics "github.com/VictoriaMetrics/metrics"

	"github.com/ankiplace/ankiplace/internal/canvas"
	"github.com/ankiplace/ankiplace/internal/engine"
)

// Backend is the store surface the gateway dispatches to. Satisfied by
// *store.Store; tests substitute an instrumented implementation.
type Backend interface {
	CanvasGrid(ctx context.Context) ([]int, error)
	PixelDetail(ctx context.Context, x, y int) (canvas.PixelDetail, error)
	UserByID(ctx context.Context, userID string) (canvas.User, error)
	PaintBalance(ctx context.Context, userID string) (int, error)
	RegisterUser(ctx context.Context, username string) (canvas.User, error)
	PaintPixel(ctx context.Context, upd canvas.PixelUpdate) (canvas.Pixel, error)
	SubmitReviews(ctx context.Context, sub canvas.ReviewSubmission) (canvas.ReviewReceipt, error)
}

// Executor routes classified operations: Submit for writes (serialized),
// Query for reads (concurrent). Satisfied by *engine.Engine.
type Executor interface {
	Submit(ctx context.Context, op engine.Op) error
	Query(ctx context.Context, op engine.Op) error
}

// Server is the HTTP request gateway. It terminates inbound calls,
// authenticates privileged ones against the session secret, classifies
// each route as read or write - statically, never from the payload - and
// dispatches to the executor.
type Server struct {
	backend Backend
	exec    Executor
	secret  string
	limiter *paintLimiter
	tokens  engine.TokenGenerator
}

// Config carries the gateway's runtime parameters. The secret is held in
// memory only; it is never logged and never reaches the store.
type Config struct {
	Secret        string
	PaintCooldown time.Duration
}

// New creates a gateway over the given backend and executor.
func New(backend Backend, exec Executor, cfg Config) *Server {
	return &Server{
		backend: backend,
		exec:    exec,
		secret:  cfg.Secret,
		limiter: newPaintLimiter(cfg.PaintCooldown),
		tokens:  engine.UUIDv7Generator{},
	}
}

// Handler returns the routing table wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Read routes.
	mux.HandleFunc("GET /canvas", s.handleCanvas)
	mux.HandleFunc("GET /pixel/{x}/{y}", s.handlePixelDetail)
	mux.HandleFunc("GET /user/{id}", s.handleUser)
	mux.HandleFunc("GET /user/{id}/balance", s.handleBalance)

	// Write routes.
	mux.HandleFunc("POST /user", s.handleRegister)
	mux.HandleFunc("POST /paint", s.handlePaint)
	mux.HandleFunc("POST /submit-reviews", s.handleSubmitReviews)

	// Operational routes.
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	return s.withRequestMiddleware(mux)
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the per-request operation token, or "" outside a
// request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder captures the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// withRequestMiddleware tags each request with a time-sortable operation
// token, logs the outcome, and counts it.
func (s *Server) withRequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := s.tokens.Generate()
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		w.Header().Set("X-Request-Id", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		vmetrics.GetOrCreateCounter(
			`ankiplace_http_requests_total{method="` + r.Method + `"}`,
		).Inc()

		slog.Info("request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	vmetrics.WritePrometheus(w, true)
}
