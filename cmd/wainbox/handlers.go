package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"wainbox/internal/errors"
	"wainbox/internal/service"
	"wainbox/pkg/whatsapp/types"
)

func (s *Server) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "OK - open %s", s.cfg.Server.MountPrefix)
	}
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.WithError(err).Error("Health check failed")
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// handleWebhookVerification answers the Cloud API subscription handshake
func (s *Server) handleWebhookVerification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifyHandshakeToken(r, s.cfg.WhatsApp.VerifyToken); err != nil {
			s.writeError(w, r, err)
			return
		}

		challenge := r.URL.Query().Get(types.QueryHubChallenge)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s.ingestor.Verify(challenge)))
	}
}

func (s *Server) handleWebhookDelivery() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readWebhookBody(w, r, s.cfg.WhatsApp.AppSecret)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := service.WithVerboseLogging(r.Context(), s.verbose)
		if _, err := s.ingestor.Ingest(ctx, body); err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]string{"status": s.cfg.Inbox.AckStatus})
	}
}

func (s *Server) handleListWebhooks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, err := s.inbox.ListRecent(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, messages)
	}
}

func (s *Server) handleSendTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		var req service.DispatchRequest
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				s.writeError(w, r, errors.NewValidationError("body", service.ErrMsgInvalidJSON))
				return
			}
		}

		ctx := service.WithVerboseLogging(r.Context(), s.verbose)
		resp, err := s.dispatcher.Dispatch(ctx, req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeRawJSON(w, http.StatusOK, resp)
	}
}
