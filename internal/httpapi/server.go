package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storyd/pkg/types"
)

const (
	flowStory   = "story"
	flowFrame   = "frame"
	flowNarrate = "narrate"
	flowDebug   = "debug"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	GenerateStory(ctx context.Context, req types.StoryRequest) (types.Story, error)
	GenerateFrame(ctx context.Context, req types.FrameRequest) (types.Frame, error)
	Narrate(ctx context.Context, req types.NarrateRequest) (types.Narration, error)
	Health() types.HealthResponse
	Ready() bool
	DebugEnabled() bool
	SetImageURL(u string) (string, error)
}

// routes answered for CORS probes without preflight headers.
var optionsRoutes = []string{"/generate_story", "/generate_frame", "/narrate", "/health"}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, JSON recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverJSON)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/generate_story", serveJSON(flowStory, svc.GenerateStory))
	r.Post("/generate_frame", serveJSON(flowFrame, svc.GenerateFrame))
	r.Post("/narrate", serveJSON(flowNarrate, svc.Narrate))
	for _, p := range optionsRoutes {
		r.Options(p, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Health())
	})

	if svc.DebugEnabled() {
		r.Post("/debug/image_url", serveJSON(flowDebug, func(_ context.Context, req types.ImageURLRequest) (types.ImageURL, error) {
			u, err := svc.SetImageURL(req.URL)
			if err != nil {
				return types.ImageURL{}, err
			}
			return types.ImageURL{Success: true, URL: u}, nil
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not configured"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// serveJSON adapts a service call to a JSON POST endpoint: content type and
// size checks, decoding, context joining, error mapping and request logging.
func serveJSON[Req, Resp any](flow string, call func(context.Context, Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req Req
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, flow)
		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := requestContext(r)
		defer cancel()
		resp, err := call(ctx, req)
		if err != nil {
			// If the client went away there is nobody to answer.
			if r.Context().Err() != nil {
				logEnd(r, lvl, flow, 499, start, err)
				return
			}
			status := writeServiceError(w, flow, err)
			logEnd(r, lvl, flow, status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		logEnd(r, lvl, flow, http.StatusOK, start, nil)
	}
}

// recoverJSON turns handler panics into the structured 500 body.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			if zlog != nil {
				zlog.Error().Interface("panic", rec).Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).Msg("handler panic")
			}
			writeJSONError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
		}()
		next.ServeHTTP(w, r)
	})
}
