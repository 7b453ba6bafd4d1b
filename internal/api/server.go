package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"yieldScope/internal/model"
)

// TopSource supplies the latest ranking.
type TopSource interface {
	Latest() []model.PoolYield
}

type dataResponse struct {
	ErrorCode int         `json:"error_code"`
	Data      interface{} `json:"data"`
}

type errorResponse struct {
	ErrorCode int    `json:"error_code"`
	Error     string `json:"error"`
}

// Server is the status HTTP endpoint.
type Server struct {
	top      TopSource
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

func NewServer(top TopSource, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{top: top, gatherer: gatherer, logger: logger}
}

// NewRouter returns the router with every route registered.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.HandleIndex).Methods(http.MethodGet)
	r.HandleFunc("/status", s.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/pools/top", s.HandleTopPools).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.NotFoundHandler = http.HandlerFunc(s.HandleNotFound)
	r.Use(withCORS)
	return r
}

func (s *Server) HandleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("yieldScope status server"))
}

func (s *Server) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, dataResponse{ErrorCode: 0, Data: "OK"})
}

func (s *Server) HandleTopPools(w http.ResponseWriter, _ *http.Request) {
	top := []model.PoolYield{}
	if s.top != nil {
		if latest := s.top.Latest(); latest != nil {
			top = latest
		}
	}
	writeJSON(w, dataResponse{ErrorCode: 0, Data: top})
}

func (s *Server) HandleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, errorResponse{ErrorCode: 1, Error: "not found"})
}

// ListenAndServe serves until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, host string, port int) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:           s.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server started", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}
