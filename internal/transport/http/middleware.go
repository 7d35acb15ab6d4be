package httptransport

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"poker-club/internal/logging"
	"poker-club/internal/session"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
)

// RequestLogMiddleware writes one JSON line per request, tagged with the
// table in the path when there is one.
func RequestLogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				route := req.URL.Path
				rc := chi.RouteContext(req.Context())
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				attrs := []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
				}
				if id := chi.URLParam(req, "table_id"); id != "" {
					attrs = append(attrs, slog.String("table_id", id))
				}
				return attrs
			},
		},
	)
}

// CommandAuditMiddleware adds the decoded command body and, for rejected
// commands, the error code to the request log line. Reply bodies are never
// logged since a join reply carries the seat token.
func CommandAuditMiddleware(maxBody int) func(http.Handler) http.Handler {
	if maxBody <= 0 {
		maxBody = 2048
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			rec := &replyRecorder{ResponseWriter: w, status: http.StatusOK, limit: 256}
			next.ServeHTTP(rec, r)

			httplog.SetAttrs(r.Context(), slog.Any("command", loggedBody(body, maxBody)))
			if code := rec.errorCode(); code != "" {
				httplog.SetAttrs(r.Context(), slog.String("error_code", code))
			}
		})
	}
}

// replyRecorder keeps the status and the head of an error reply.
type replyRecorder struct {
	http.ResponseWriter
	status int
	head   bytes.Buffer
	limit  int
}

func (rr *replyRecorder) WriteHeader(status int) {
	rr.status = status
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *replyRecorder) Write(p []byte) (int, error) {
	if rr.status >= http.StatusBadRequest {
		if room := rr.limit - rr.head.Len(); room > 0 {
			rr.head.Write(p[:min(len(p), room)])
		}
	}
	return rr.ResponseWriter.Write(p)
}

func (rr *replyRecorder) errorCode() string {
	if rr.status < http.StatusBadRequest {
		return ""
	}
	var reply struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(rr.head.Bytes(), &reply) != nil {
		return strconv.Itoa(rr.status)
	}
	return reply.Error
}

func loggedBody(b []byte, limit int) any {
	if len(b) == 0 {
		return ""
	}
	var out map[string]any
	if len(b) <= limit && json.Unmarshal(b, &out) == nil {
		return out
	}
	return string(b[:min(len(b), limit)])
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}

type seatKey struct{}

func seatFrom(ctx context.Context) (int, bool) {
	seat, ok := ctx.Value(seatKey{}).(int)
	return seat, ok
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// SeatAuthMiddleware resolves the bearer seat token against the table in
// the path and puts the seat in the request context. With required unset a
// request without a token passes through as a spectator; a wrong token is
// always rejected.
func SeatAuthMiddleware(tables *session.Manager, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				if required {
					WriteHTTPError(w, http.StatusUnauthorized, "seat_token_required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			c, err := tables.Get(chi.URLParam(r, "table_id"))
			if err != nil {
				WriteHTTPError(w, http.StatusNotFound, "table_not_found")
				return
			}
			seat, err := c.Authorize(r.Context(), token)
			if err != nil {
				status, code := MapCommandError(err)
				WriteHTTPError(w, status, code)
				return
			}
			httplog.SetAttrs(r.Context(), slog.Int("seat", seat))
			ctx := context.WithValue(r.Context(), seatKey{}, seat)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAuthMiddleware guards the operator routes. An empty key leaves them
// open, which only makes sense on a local table server.
func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" && !isAdmin(r, adminKey) {
				WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isAdmin(r *http.Request, adminKey string) bool {
	key := r.Header.Get("X-Admin-Key")
	if key == "" {
		key = bearerToken(r)
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1
}

// page reads limit and offset, clamping limit to [1, maxLimit].
func page(r *http.Request, defLimit, maxLimit int) (limit, offset int) {
	limit, offset = defLimit, 0
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = min(max(n, 1), maxLimit)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		offset = max(n, 0)
	}
	return limit, offset
}

// PlayerID names the caller on join. It is public, so it never authorizes
// a seat command on its own.
func PlayerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Player-ID"))
}
