package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"racepool/models"
	"racepool/service"
)

type verifyPaymentRequest struct {
	WalletAddress    string `json:"walletAddress"`
	PaymentReference string `json:"paymentReference"`
}

func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := s.payments.Verify(r.Context(), req.WalletAddress, req.PaymentReference)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type entitlementResponse struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (s *Server) handleActiveEntitlement(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")

	entitlement, err := s.stats.CheckEntitlement(r.Context(), wallet)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := entitlementResponse{}
	if entitlement != nil {
		resp.Active = true
		resp.ExpiresAt = &entitlement.ExpiresAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePoolSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.stats.GetPoolSummary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type drawRequest struct {
	PeriodID string `json:"periodId"`
}

// periodOrCurrent defaults an omitted period id to the current week
func periodOrCurrent(periodID string) string {
	if periodID == "" {
		return service.CurrentPeriodID()
	}
	return periodID
}

func (s *Server) handleTriggerDraw(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := s.draws.Draw(r.Context(), periodOrCurrent(req.PeriodID))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRetryDraw(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.PeriodID == "" {
		writeJSONError(w, http.StatusBadRequest, "periodId required")
		return
	}

	result, err := s.draws.RetryDraw(r.Context(), req.PeriodID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type giveawayEnterRequest struct {
	ParticipantID string `json:"participantId"`
	PeriodID      string `json:"periodId"`
}

func (s *Server) handleGiveawayEnter(w http.ResponseWriter, r *http.Request) {
	var req giveawayEnterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	entry, err := s.giveaway.Enter(r.Context(), periodOrCurrent(req.PeriodID), req.ParticipantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleGiveawayEntries(w http.ResponseWriter, r *http.Request) {
	periodID := periodOrCurrent(r.URL.Query().Get("period"))

	entries, err := s.giveaway.GetEntries(r.Context(), periodID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.GiveawayEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGiveawayDraw(w http.ResponseWriter, r *http.Request) {
	var req drawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	draw, err := s.giveaway.Draw(r.Context(), periodOrCurrent(req.PeriodID))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, draw)
}

func (s *Server) handleGiveawayDraws(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	draws, err := s.giveaway.GetRecentDraws(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if draws == nil {
		draws = []*models.GiveawayDraw{}
	}

	writeJSON(w, http.StatusOK, draws)
}

func (s *Server) handleRebuildAggregates(w http.ResponseWriter, r *http.Request) {
	summary, err := s.stats.RebuildAggregates(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
