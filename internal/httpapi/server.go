package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/antoniostano/voicerelay/internal/config"
	"github.com/antoniostano/voicerelay/internal/observability"
	"github.com/antoniostano/voicerelay/internal/policy"
	"github.com/antoniostano/voicerelay/internal/provision"
)

// Provisioner starts a bot session upstream.
type Provisioner interface {
	Start(ctx context.Context, payload provision.Payload) (provision.Result, error)
}

type Server struct {
	cfg         config.Config
	provisioner Provisioner
	metrics     *observability.Metrics
	log         *log.Logger
}

func New(cfg config.Config, provisioner Provisioner, metrics *observability.Metrics, logger *log.Logger) *Server {
	return &Server{
		cfg:         cfg,
		provisioner: provisioner,
		metrics:     metrics,
		log:         logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)
	// Browser clients call from any origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{requestIDHeader},
	}))

	r.Post("/connect", s.handleConnect)

	return r
}

const errMissingFields = "Services or config not found on request body"

type infoResponse struct {
	Info any `json:"info,omitempty"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	// Keys match exactly, case included.
	var fields map[string]json.RawMessage
	if err := decodeJSON(r, &fields); err != nil && !errors.Is(err, errEmptyBody) && !errors.Is(err, errNotObject) {
		s.metrics.ObserveOutcome(observability.OutcomeInvalidRequest)
		respondJSON(w, http.StatusBadRequest, infoResponse{Info: "invalid request body: " + err.Error()})
		return
	}
	services := fields["services"]

	entries, ok := configEntries(fields["config"])
	if !truthy(services) || !ok || s.cfg.DailyBotsURL == "" {
		s.metrics.ObserveOutcome(observability.OutcomeInvalidRequest)
		respondJSON(w, http.StatusBadRequest, infoResponse{Info: errMissingFields})
		return
	}

	payload := provision.BuildPayload(services, entries)

	// The upstream call runs to completion even if the browser goes away.
	ctx := context.WithoutCancel(r.Context())
	started := time.Now()
	res, err := s.provisioner.Start(ctx, payload)
	if err != nil {
		s.metrics.ObserveOutcome(observability.OutcomeTransportError)
		msg, _ := policy.RedactCredentials(err.Error(), s.cfg.DailyBotsAPIKey)
		s.log.Error("provisioning request failed", "request_id", requestIDFrom(r.Context()), "err", msg)
		respondJSON(w, http.StatusBadGateway, infoResponse{Info: "upstream request failed"})
		return
	}
	s.metrics.ObserveUpstream(res.StatusCode, time.Since(started))

	if !res.OK() {
		s.metrics.ObserveOutcome(observability.OutcomeUpstreamError)
		var body infoResponse
		if field, ok := res.ErrorField(); ok {
			body.Info = field
		}
		respondJSON(w, res.StatusCode, body)
		return
	}

	s.metrics.ObserveOutcome(observability.OutcomeOK)
	respondRaw(w, http.StatusOK, res.Body)
}

// configEntries accepts a JSON array and returns its elements. Anything
// else, including null and falsy scalars, is rejected.
func configEntries(raw json.RawMessage) ([]json.RawMessage, bool) {
	if !truthy(raw) {
		return nil, false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	if entries == nil {
		entries = []json.RawMessage{}
	}
	return entries, true
}

// truthy reports whether a JSON value is present and not one of null,
// false, 0 or "". Empty arrays and objects are truthy.
func truthy(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	switch v {
	case "", "null", "false", `""`:
		return false
	}
	if c := v[0]; c == '-' || (c >= '0' && c <= '9') {
		var n float64
		if err := json.Unmarshal([]byte(v), &n); err == nil {
			return n != 0
		}
	}
	return true
}

var (
	errEmptyBody    = errors.New("empty body")
	errNotObject    = errors.New("body is not a json object")
	errTrailingData = errors.New("unexpected data after json value")
)

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return errEmptyBody
		}
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errTrailingData
	}
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		return errNotObject
	}
	return json.Unmarshal(raw, out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

const maxRequestIDLen = 64

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:\-]+$`)

// validRequestID accepts short caller ids made of token characters only.
func validRequestID(id string) bool {
	return len(id) <= maxRequestIDLen && requestIDPattern.MatchString(id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []any{
			"request_id", requestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(started),
		}
		if status >= 400 {
			s.log.Warn("request completed", fields...)
			return
		}
		s.log.Info("request completed", fields...)
	})
}
