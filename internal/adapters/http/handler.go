package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pgil256/juntas-seguras-sub008/internal/application"
	"github.com/pgil256/juntas-seguras-sub008/internal/contracts"
	"github.com/pgil256/juntas-seguras-sub008/internal/domain"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) createPool(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.CreatePoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	members := make([]domain.Member, 0, len(req.Members))
	for _, m := range req.Members {
		members = append(members, domain.Member{
			MemberID:    strings.TrimSpace(m.MemberID),
			DisplayName: strings.TrimSpace(m.DisplayName),
			Contact:     strings.TrimSpace(m.Contact),
			Position:    m.Position,
			PayoutMethod: domain.PayoutMethod{
				Type:   strings.TrimSpace(m.PayoutType),
				Handle: strings.TrimSpace(m.PayoutHandle),
			},
		})
	}
	pool, err := h.service.CreatePool(r.Context(), actor, application.CreatePoolInput{
		Name:               strings.TrimSpace(req.Name),
		ContributionAmount: req.ContributionAmount,
		Frequency:          domain.Frequency(strings.ToLower(strings.TrimSpace(req.Frequency))),
		Members:            members,
	})
	if err != nil {
		h.fail(w, r, "create_pool", err)
		return
	}
	writeSuccess(w, http.StatusCreated, "", pool)
}

func (h *Handler) activatePool(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	pool, err := h.service.ActivatePool(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "activate_pool", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", pool)
}

func (h *Handler) getPool(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	pool, err := h.service.GetPool(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get_pool", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", pool)
}

func (h *Handler) getRoundStatus(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	out, err := h.service.GetRoundStatus(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get_round_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.RoundStatusResponse{
		PoolID:               out.Pool.PoolID,
		RoundID:              out.Round.RoundID,
		RoundNumber:          out.Round.Number,
		Status:               string(out.Round.Status),
		RecipientID:          out.Round.RecipientMemberID,
		ScheduledPayoutAt:    out.Round.ScheduledPayoutAt.Format(time.RFC3339),
		PayoutAmount:         out.Round.PayoutAmountCached,
		PayoutProcessed:      out.Round.PayoutProcessed,
		ContributionsIn:      out.ContributionsIn,
		MissingContributions: out.MissingContributions,
	})
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	balance, err := h.service.PoolBalance(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get_balance", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", balance)
}

func (h *Handler) cancelRound(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	round, err := h.service.CancelCurrentRound(r.Context(), actor, chi.URLParam(r, "id"), strings.TrimSpace(req.Reason))
	if err != nil {
		h.fail(w, r, "cancel_round", err)
		return
	}
	writeSuccess(w, http.StatusOK, "round cancelled", round)
}

func (h *Handler) recordContribution(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.RecordContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	out, err := h.service.RecordContribution(r.Context(), actor, application.RecordContributionInput{
		PoolID:   strings.TrimSpace(req.PoolID),
		MemberID: strings.TrimSpace(req.MemberID),
		Amount:   req.Amount,
		Direct:   req.Direct,
	})
	if err != nil {
		h.fail(w, r, "record_contribution", err)
		return
	}
	resp := contracts.ContributionResponse{
		ContributionID: out.Contribution.ContributionID,
		RoundID:        out.Contribution.RoundID,
		MemberID:       out.Contribution.MemberID,
		Amount:         out.Contribution.Amount,
		AllReceived:    out.AllReceived,
	}
	if out.Hold != nil {
		resp.EscrowID = out.Hold.HoldID
		resp.EscrowStatus = string(out.Hold.Status)
	}
	writeSuccess(w, http.StatusCreated, "", resp)
}

func (h *Handler) captureHold(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	hold, err := h.service.CaptureHold(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "capture_hold", err)
		return
	}
	writeSuccess(w, http.StatusOK, "hold captured", hold)
}

func (h *Handler) voidHold(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	hold, err := h.service.VoidHold(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "void_hold", err)
		return
	}
	writeSuccess(w, http.StatusOK, "hold voided", hold)
}

func (h *Handler) earlyPayoutEligibility(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	status, err := h.service.CheckEarlyPayoutEligibility(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "check_early_payout_eligibility", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.EarlyPayoutEligibilityResponse{
		Allowed:               status.Allowed,
		Reason:                status.Reason,
		MissingContributions:  status.MissingContributions,
		RecipientConnectState: status.RecipientConnectState,
	})
}

func (h *Handler) initiateEarlyPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.InitiateEarlyPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	out, err := h.service.InitiateEarlyPayout(r.Context(), actor, application.InitiateEarlyPayoutInput{
		PoolID:       strings.TrimSpace(req.PoolID),
		Reason:       strings.TrimSpace(req.Reason),
		ApprovalCode: strings.TrimSpace(req.ApprovalCode),
	})
	if err != nil {
		h.fail(w, r, "initiate_early_payout", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", earlyPayoutData(out))
}

func (h *Handler) triggerPayout(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r.Context())
	var req contracts.TriggerPayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	result, err := h.service.TriggerScheduledPayout(r.Context(), actor, strings.TrimSpace(req.PoolID))
	if err != nil {
		h.fail(w, r, "trigger_payout", err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payoutData(result))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code := mapDomainError(err)
	logHTTPOperationError(r.Context(), operation, status, code, err.Error(), err)
	writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
}

func payoutData(result application.PayoutResult) map[string]interface{} {
	data := map[string]interface{}{
		"decision":    string(result.Decision),
		"pool_status": string(result.Pool.Status),
	}
	if len(result.Missing) > 0 {
		data["missing_contributions"] = result.Missing
	}
	if result.Payout != nil {
		data["payout"] = contracts.PayoutResponse{
			PayoutID:    result.Payout.PayoutID,
			PoolID:      result.Payout.PoolID,
			RoundID:     result.Payout.RoundID,
			RecipientID: result.Payout.RecipientID,
			GrossAmount: result.Payout.GrossAmount,
			PlatformFee: result.Payout.PlatformFee,
			NetAmount:   result.Payout.NetAmount,
			Early:       result.Payout.EarlyReleased,
			ReleasedAt:  result.Payout.ReleasedAt.Format(time.RFC3339),
			NextRound:   result.Pool.CurrentRound,
			PoolStatus:  string(result.Pool.Status),
		}
	}
	return data
}

func earlyPayoutData(out application.EarlyPayoutOutput) map[string]interface{} {
	data := map[string]interface{}{
		"request": out.Request,
		"status": contracts.EarlyPayoutEligibilityResponse{
			Allowed:               out.Status.Allowed,
			Reason:                out.Status.Reason,
			MissingContributions:  out.Status.MissingContributions,
			RecipientConnectState: out.Status.RecipientConnectState,
		},
	}
	if out.Result != nil {
		data["payout"] = payoutData(*out.Result)
	}
	return data
}
