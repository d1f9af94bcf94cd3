package httputil

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/leadflow/leadflow-backend/pkg/errors"
	"github.com/leadflow/leadflow-backend/pkg/logger"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	AgentIDKey   contextKey = "agent_id"
	AgentNameKey contextKey = "agent_name"

	requestInfoKey contextKey = "request_info"
)

// requestInfo lets the access log see the agent that authentication
// resolved further down the chain
type requestInfo struct {
	agentID string
}

// RequestID takes X-Request-ID from the request or generates one, and
// echoes it on the response
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = context.WithValue(ctx, requestInfoKey, &requestInfo{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger writes one access log line per request. 4xx responses log at warn,
// 5xx at error.
func Logger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			event := log.Info()
			switch {
			case rec.status >= 500:
				event = log.Error()
			case rec.status >= 400:
				event = log.Warn()
			}

			agentID := GetAgentID(r.Context())
			if info, ok := r.Context().Value(requestInfoKey).(*requestInfo); ok && info.agentID != "" {
				agentID = info.agentID
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Int("bytes", rec.bytes).
				Dur("duration", time.Since(start)).
				Str("agent_id", agentID).
				Msg("HTTP request")
		})
	}
}

// Recoverer turns a panic into a 500 response
func Recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if p := recover(); p != nil {
					if p == http.ErrAbortHandler {
						panic(p)
					}
					log.WithRequestID(GetRequestID(r.Context())).Error().
						Interface("panic", p).
						Str("path", r.URL.Path).
						Msg("panic recovered")
					ErrorLocalized(w, r, errors.Internal("panic recovered"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// GetAgentID retrieves the authenticated field agent's ID from context
func GetAgentID(ctx context.Context) string {
	id, _ := ctx.Value(AgentIDKey).(string)
	return id
}

// GetAgentName retrieves the authenticated field agent's display name from context
func GetAgentName(ctx context.Context) string {
	name, _ := ctx.Value(AgentNameKey).(string)
	return name
}

// WithAgentContext adds the field agent to the context
func WithAgentContext(ctx context.Context, agentID, name string) context.Context {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.agentID = agentID
	}
	ctx = context.WithValue(ctx, AgentIDKey, agentID)
	return context.WithValue(ctx, AgentNameKey, name)
}
