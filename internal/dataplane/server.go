package dataplane

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// maxBodyBytes caps a single request body.
const maxBodyBytes = 4 << 20

// messageTypes are the path segments accepted under /v1.
var messageTypes = map[string]bool{
	"identify": true,
	"track":    true,
	"page":     true,
	"screen":   true,
	"group":    true,
	"alias":    true,
	"batch":    true,
}

// Server is the collector's HTTP surface.
type Server struct {
	store    Store
	writeKey string
	logger   *slog.Logger
	now      func() time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithWriteKey restricts the collector to one write key.
// Default: any non-empty write key is accepted.
func WithWriteKey(key string) ServerOption {
	return func(s *Server) { s.writeKey = key }
}

// WithLogger logs every accepted or rejected request.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a collector that records into store.
func NewServer(store Store, opts ...ServerOption) *Server {
	s := &Server{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the collector routes:
//
//	GET    /healthz
//	POST   /v1/{type}      basic auth, JSON body
//	GET    /messages?type=  recorded messages
//	DELETE /messages        forget recorded messages
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.basicAuth)
		r.Post("/{type}", s.receive)
	})

	r.Get("/messages", s.list)
	r.Delete("/messages", s.reset)

	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// basicAuth requires a write key as the basic-auth username.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user == "" || (s.writeKey != "" && user != s.writeKey) {
			w.Header().Set("WWW-Authenticate", `Basic realm="dataplane"`)
			s.reject(w, r, http.StatusUnauthorized, "invalid write key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) receive(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	if !messageTypes[typ] {
		s.reject(w, r, http.StatusNotFound, "unknown message type")
		return
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		s.reject(w, r, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.reject(w, r, http.StatusRequestEntityTooLarge, "body too large")
		return
	}

	if msg := checkBody(typ, body); msg != "" {
		s.reject(w, r, http.StatusBadRequest, msg)
		return
	}

	user, _, _ := r.BasicAuth()
	rec := Record{
		ID:         uuid.NewString(),
		Type:       typ,
		WriteKey:   user,
		Body:       body,
		ReceivedAt: s.now().UTC(),
	}
	if err := s.store.Save(rec); err != nil {
		if s.logger != nil {
			s.logger.Error("store message", slog.String("error", err.Error()))
		}
		http.Error(w, "failed to store message", http.StatusInternalServerError)
		return
	}

	if s.logger != nil {
		s.logger.Info("message received",
			slog.String("type", typ),
			slog.String("id", rec.ID),
			slog.Int("size_bytes", len(body)),
		)
	}
	_, _ = w.Write([]byte("OK"))
}

// checkBody returns a reason the body is unacceptable, or "".
func checkBody(typ string, body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "body must be a JSON object"
	}
	if typ == "batch" {
		var members []map[string]any
		if err := json.Unmarshal(obj["batch"], &members); err != nil {
			return "batch must be an array of objects"
		}
		return ""
	}
	var bodyType string
	if err := json.Unmarshal(obj["type"], &bodyType); err != nil || bodyType != typ {
		return "type field does not match path"
	}
	return ""
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []Record{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

func (s *Server) reset(w http.ResponseWriter, _ *http.Request) {
	if err := s.store.Reset(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if s.logger != nil {
		s.logger.Warn("request rejected",
			slog.String("path", r.URL.Path),
			slog.Int("status_code", code),
			slog.String("reason", msg),
		)
	}
	http.Error(w, msg, code)
}
