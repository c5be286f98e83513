// Package httpapi exposes the pipeline's event stream over a websocket and
// its Prometheus instruments over /metrics, following the chi +
// gorilla/websocket router shape of the samantha example's
// internal/httpapi/server.go.
package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meetily/asr-core/internal/events"
	"github.com/meetily/asr-core/internal/logging"
	"github.com/meetily/asr-core/internal/metrics"
)

const writeWait = 5 * time.Second

// Server bridges an events.Bus to HTTP/websocket consumers.
type Server struct {
	bus           *events.Bus
	metrics       *metrics.Metrics
	upgrader      websocket.Upgrader
	allowAnyOrigin bool
}

// New constructs a Server fanning bus events out to websocket subscribers
// and exposing m's instruments at /metrics.
func New(bus *events.Bus, m *metrics.Metrics, allowAnyOrigin bool) *Server {
	return &Server{
		bus:            bus,
		metrics:        m,
		allowAnyOrigin: allowAnyOrigin,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// Router builds the HTTP router: /healthz, /metrics, and the events
// websocket at /v1/events/ws.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	if s.metrics != nil {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			metrics.Handler().ServeHTTP(w, r)
		})
	}

	r.Get("/v1/events/ws", s.handleEventsWS)

	return r
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	log := logging.For(logging.ComponentTransport)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log = log.With("conn_id", connID)

	ch, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	log.Info("event subscriber connected")
	defer log.Info("event subscriber disconnected")

	for evt := range ch {
		envelope := eventEnvelope{Event: string(evt.Name), Payload: evt.Payload}
		body, err := sonic.Marshal(envelope)
		if err != nil {
			log.Warn("failed to encode event", "err", err, "event", evt.Name)
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			log.Debug("websocket write failed, closing subscriber", "err", err)
			return
		}
	}
}

type eventEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := sonic.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
