package api

import (
	"context"
	"net/http"
	"time"

	"cashdesk/pkg/journal"
	"cashdesk/pkg/logging"
	"cashdesk/pkg/operation"
	"cashdesk/pkg/workflow"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the teller workstation over HTTP for the counter front end.
type Server struct {
	workflow *workflow.Workflow
	ops      *operation.Service
	journal  journal.Journal
	registry *prometheus.Registry
	server   *http.Server
	config   ServerConfig
	logger   *logging.Logger
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Address to listen on (e.g., ":8080")
	Address string

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":8080",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

// NewServer creates the API server. registry may be nil, in which case the
// /metrics endpoint is not mounted.
func NewServer(wf *workflow.Workflow, ops *operation.Service, j journal.Journal, registry *prometheus.Registry, config ServerConfig) *Server {
	s := &Server{
		workflow: wf,
		ops:      ops,
		journal:  j,
		registry: registry,
		config:   config,
		logger:   logging.Global().Named("api"),
	}

	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	v1 := router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/session", s.handleSessionState).Methods(http.MethodGet)
	v1.HandleFunc("/session/agency/open", s.handleOpenAgency).Methods(http.MethodPost)
	v1.HandleFunc("/session/agency/close", s.handleCloseAgency).Methods(http.MethodPost)
	v1.HandleFunc("/session/till-window/open", s.handleOpenTillWindow).Methods(http.MethodPost)
	v1.HandleFunc("/session/till-window/close", s.handleCloseTillWindow).Methods(http.MethodPost)
	v1.HandleFunc("/session/cash-drawer/open", s.handleOpenCashDrawer).Methods(http.MethodPost)
	v1.HandleFunc("/session/cash-drawer/close", s.handleCloseCashDrawer).Methods(http.MethodPost)

	v1.HandleFunc("/operations/withdrawal", s.handleWithdrawal).Methods(http.MethodPost)
	v1.HandleFunc("/operations/deposit", s.handleDeposit).Methods(http.MethodPost)
	v1.HandleFunc("/operations/validate", s.handleValidate).Methods(http.MethodPost)

	v1.HandleFunc("/denominations/suggest", s.handleSuggest).Methods(http.MethodGet)
	v1.HandleFunc("/journal", s.handleJournal).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// Handler returns the server's HTTP handler. Used in tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.logger.Info("api server starting", zap.String("address", s.config.Address))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("api server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("api server stopping")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}
