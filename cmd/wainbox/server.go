package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wainbox/internal/errors"
	"wainbox/internal/metrics"
	"wainbox/internal/middleware"
	"wainbox/internal/models"
	"wainbox/internal/service"
	"wainbox/internal/tracing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// healthChecker is the part of the database the health endpoint needs
type healthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg        *models.Config
	router     *mux.Router
	handler    http.Handler
	logger     *logrus.Logger
	errLogger  *errors.Logger
	ingestor   *service.WebhookIngestor
	dispatcher *service.TemplateDispatcher
	inbox      *service.InboxService
	db         healthChecker
	metrics    *metrics.Registry
	verbose    bool
	server     *http.Server
}

func NewServer(
	cfg *models.Config,
	ingestor *service.WebhookIngestor,
	dispatcher *service.TemplateDispatcher,
	inbox *service.InboxService,
	db healthChecker,
	registry *metrics.Registry,
	logger *logrus.Logger,
	verbose bool,
) *Server {
	s := &Server{
		cfg:        cfg,
		router:     mux.NewRouter(),
		logger:     logger,
		errLogger:  errors.WrapLogger(logger),
		ingestor:   ingestor,
		dispatcher: dispatcher,
		inbox:      inbox,
		db:         db,
		metrics:    registry,
		verbose:    verbose,
	}

	s.setupRoutes()
	recovered := middleware.RecoveryMiddleware(logger)(s.router)
	s.handler = middleware.ObservabilityMiddleware(logger, registry, s.router)(recovered)
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	prefix := s.cfg.Server.MountPrefix
	inbox := s.router
	if prefix != "/" {
		s.router.HandleFunc("/", s.handleIndex()).Methods(http.MethodGet)
		inbox = s.router.PathPrefix(prefix).Subrouter()
	}

	// WhatsApp Cloud API webhook
	inbox.HandleFunc("/webhook", s.handleWebhookVerification()).Methods(http.MethodGet)
	inbox.HandleFunc("/webhook", s.handleWebhookDelivery()).Methods(http.MethodPost)

	// Operator API
	inbox.HandleFunc("/api/webhooks", s.handleListWebhooks()).Methods(http.MethodGet)
	inbox.HandleFunc("/api/send-template", s.handleSendTemplate()).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errors.NewNotFoundError("route", r.URL.Path, "not found"))
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errors.NewMethodNotAllowedError(r.Method, r.URL.Path))
	})
}

// Handler returns the routed handler with observability and panic recovery applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.handler,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.WithFields(logrus.Fields{
		"port":         s.cfg.Server.Port,
		"mount_prefix": s.cfg.Server.MountPrefix,
	}).Info("Starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// writeError is the single translation point from application errors to
// HTTP responses. Causes are logged, only the user message is returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := tracing.GetRequestID(r.Context())
	status := errors.HTTPStatusCode(err)

	s.errLogger.LogByStatus(err, "Request failed", logrus.Fields{
		service.LogFieldRequestID:  requestID,
		service.LogFieldMethod:     r.Method,
		service.LogFieldURL:        r.URL.Path,
		service.LogFieldStatusCode: status,
	})

	s.writeJSON(w, status, errors.ToHTTPResponse(err, requestID))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeRawJSON(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.WithError(err).Error("Failed to write response")
	}
}
