// Package admin serves the simulator status, sensor snapshots, Prometheus
// metrics and a live websocket feed.
package admin

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fuelsensor-sim/internal/logging"
	"fuelsensor-sim/internal/sim"
	"fuelsensor-sim/internal/telemetry"
)

// StatusSource is the read-only view of the simulator the server exposes.
type StatusSource interface {
	Status() sim.Status
	Sensors() []sim.SensorSnapshot
	History() []telemetry.StateRow
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Server struct {
	Sim      StatusSource
	Hub      *Hub
	registry *prometheus.Registry
	router   *mux.Router

	// OnListen, when set, is told when the server starts and stops serving.
	OnListen func(listening bool)
}

// NewServer wires the routes. registry may be nil to disable /metrics.
func NewServer(src StatusSource, hub *Hub, registry *prometheus.Registry) *Server {
	s := &Server{Sim: src, Hub: hub, registry: registry, router: mux.NewRouter()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/sensors", s.handleSensors).Methods(http.MethodGet)
	s.router.HandleFunc("/sensors/{id}", s.handleSensor).Methods(http.MethodGet)
	if s.registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if s.Hub != nil {
		s.router.HandleFunc("/ws", s.handleWS)
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("admin server listening", "addr", ln.Addr().String())
	s.notify(true)
	defer s.notify(false)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) notify(listening bool) {
	if s.OnListen != nil {
		s.OnListen(listening)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.Sim.Status()
	code := http.StatusOK
	if st.State == sim.StateLoginFailed || st.State == sim.StateStopped {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"state": st.State, "ok": code == http.StatusOK})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		sim.Status
		Clients int `json:"ws_clients"`
	}{Status: s.Sim.Status()}
	if s.Hub != nil {
		resp.Clients = s.Hub.Clients()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.History())
}

func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Sensors())
}

func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	for _, snap := range s.Sim.Sensors() {
		if snap.SensorID == id {
			writeJSON(w, http.StatusOK, snap)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown sensor " + id})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.FromContext(r.Context()).Warn("websocket upgrade failed", "err", err)
		return
	}
	c := newClient(conn, s.Hub)
	s.Hub.register(c)
	go c.writePump()
	c.readPump()
}
