package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"clinic-relay/internal/domain"
	"clinic-relay/internal/infra/logging"
	"clinic-relay/internal/infra/metrics"
	"clinic-relay/internal/usecase"
)

// clinicCreateRequest mirrors the dashboard's create payload; field
// names follow the wire format of the durable dataset.
type clinicCreateRequest struct {
	ID           string `json:"id"`
	Name         string `json:"nome"`
	Phone        string `json:"telefone"`
	Prompt       string `json:"prompt"`
	MonthlyLimit int    `json:"limite_mensal"`
	Active       *bool  `json:"ativo"`
}

// clinicSummary is the listing view: clinic metadata without the chat
// logs, which the dashboard never renders.
type clinicSummary struct {
	Name         string `json:"nome"`
	Phone        string `json:"telefone"`
	Prompt       string `json:"prompt"`
	MonthlyLimit int    `json:"limite_mensal"`
	MessagesUsed int    `json:"mensagens_usadas"`
	Active       bool   `json:"ativo"`
}

type rejection struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRejection(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, rejection{Error: err.Error(), Kind: string(domain.Classify(err))})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mensagem": "API funcionando corretamente!"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleWebhookVerify answers the Cloud API subscription handshake.
func (s *Server) handleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") == "subscribe" && q.Get("hub.verify_token") == s.verifyToken && s.verifyToken != "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(q.Get("hub.challenge")))
		return
	}
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// handleWebhook processes one inbound notification. Policy rejections
// answer 200 so the upstream platform does not redeliver them; only
// malformed input and infrastructure failures use error statuses.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		metrics.IncInbound("malformed")
		writeRejection(w, http.StatusBadRequest, domain.ErrMalformedPayload)
		return
	}

	msg, err := extractInbound(body)
	if errors.Is(err, errStatusOnly) {
		metrics.IncInbound("ignored")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err != nil {
		metrics.IncInbound("malformed")
		log.Warn().Msg("malformed webhook payload")
		writeRejection(w, http.StatusBadRequest, err)
		return
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, senderKey(msg.PatientID), s.rateLimit, s.rateWindow)
		if err != nil {
			log.Error().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			metrics.IncInbound("throttled")
			writeJSON(w, http.StatusTooManyRequests, rejection{Error: "too many messages", Kind: "throttled"})
			return
		}
	}

	reply, err := s.relayUC.HandleInbound(ctx, msg)
	if err != nil {
		kind := domain.Classify(err)
		metrics.IncInbound(string(kind))
		switch kind {
		case domain.KindNotFound, domain.KindPolicy:
			// Expected outcome; acknowledged so it is not redelivered.
			writeRejection(w, http.StatusOK, err)
		case domain.KindMalformed, domain.KindInvalid:
			writeRejection(w, http.StatusBadRequest, err)
		case domain.KindCollaborator:
			writeRejection(w, http.StatusBadGateway, err)
		case domain.KindStorage:
			writeRejection(w, http.StatusServiceUnavailable, err)
		default:
			log.Error().Err(err).Msg("inbound processing failed")
			writeRejection(w, http.StatusInternalServerError, err)
		}
		return
	}

	metrics.IncInbound("ok")
	writeJSON(w, http.StatusOK, struct {
		Status    string `json:"status"`
		Reply     string `json:"reply"`
		Delivered bool   `json:"delivered"`
	}{Status: "ok", Reply: reply.Text, Delivered: reply.Delivered})
}

func (s *Server) handleClinicCreate(w http.ResponseWriter, r *http.Request) {
	var req clinicCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRejection(w, http.StatusBadRequest, domain.ErrInvalidArgument)
		return
	}

	err := s.clinicUC.Create(r.Context(), req.ID, usecase.CreateClinicInput{
		Name:         req.Name,
		Phone:        req.Phone,
		Prompt:       req.Prompt,
		MonthlyLimit: req.MonthlyLimit,
		Active:       req.Active,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]string{"status": "Clínica adicionada com sucesso"})
	case errors.Is(err, domain.ErrClinicExists), errors.Is(err, domain.ErrPhoneInUse):
		writeRejection(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrInvalidArgument):
		writeRejection(w, http.StatusBadRequest, err)
	default:
		writeRejection(w, http.StatusServiceUnavailable, err)
	}
}

func (s *Server) handleClinicList(w http.ResponseWriter, r *http.Request) {
	clinics, err := s.clinicUC.List(r.Context())
	if err != nil {
		writeRejection(w, http.StatusServiceUnavailable, err)
		return
	}
	out := make(map[string]clinicSummary, len(clinics))
	for id, c := range clinics {
		out[id] = clinicSummary{
			Name:         c.Name,
			Phone:        c.Phone,
			Prompt:       c.Prompt,
			MonthlyLimit: c.MonthlyLimit,
			MessagesUsed: c.MessagesUsed,
			Active:       c.Active,
		}
	}
	writeJSON(w, http.StatusOK, map[string]map[string]clinicSummary{"clinicas": out})
}

func (s *Server) handleResetUsage(w http.ResponseWriter, r *http.Request) {
	n, err := s.clinicUC.ResetUsage(r.Context())
	if err != nil {
		writeRejection(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reset": n})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !s.auth.CheckKey(req.APIKey) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		http.Error(w, "Failed to mint session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
