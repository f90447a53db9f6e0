// Package httpdebug is a small introspection HTTP server bound to
// localhost by default: device state, health, and Prometheus metrics for
// an operator or dashboard to poll, separate from the run-schedule and
// find-devices CLI surface (spec.md §6 names only those two commands;
// this is additive ambient tooling, not a feature the spec describes).
package httpdebug

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/obsctl/obsctl/internal/events"
	"github.com/obsctl/obsctl/pkg/log"
)

// requestLogFormatter writes one access-log line per request through
// pkg/log at info level, matching the teacher's own
// handlers.CustomLoggingHandler wiring (cc-backend's root server.go).
func requestLogFormatter(_ io.Writer, params handlers.LogFormatterParams) {
	log.Infof("%s %s (response: %d, size: %d)", params.Request.Method, params.URL.RequestURI(), params.StatusCode, params.Size)
}

// Server is the debug HTTP server. It never mutates device state; every
// route is read-only.
type Server struct {
	http   *http.Server
	listen net.Listener
}

// New builds a Server bound to addr, reading device state from c on
// demand. c may go stale or error; handlers degrade to an error response
// rather than panicking.
func New(addr string, c events.Conn) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealthz(c)).Methods(http.MethodGet)
	r.HandleFunc("/state", handleState(c)).Methods(http.MethodGet)
	r.HandleFunc("/devices", handleDevices(c)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("http://" + addr + "/swagger/doc.json"))).Methods(http.MethodGet)

	logged := handlers.CustomLoggingHandler(io.Discard, r, requestLogFormatter)

	return &Server{
		http:   &http.Server{Handler: logged, ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
		listen: ln,
	}, nil
}

// Serve blocks, accepting connections until Shutdown is called.
func (s *Server) Serve() error {
	log.Infof("httpdebug: listening on %s", s.listen.Addr())
	err := s.http.Serve(s.listen)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// @Summary  Liveness probe
// @Produce  plain
// @Success  200 {string} string "ok"
// @Failure  503 {string} string "connection unavailable"
// @Router   /healthz [get]
func handleHealthz(c events.Conn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := c.State(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, err.Error())
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	}
}

// @Summary  Current device state mirror
// @Produce  json
// @Success  200 {object} state.State
// @Failure  503 {string} string "connection unavailable"
// @Router   /state [get]
func handleState(c events.Conn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := c.State()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	}
}

// @Summary  Names of every known device
// @Produce  json
// @Success  200 {array} string
// @Failure  503 {string} string "connection unavailable"
// @Router   /devices [get]
func handleDevices(c events.Conn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := c.State()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap.DeviceNames())
	}
}
