package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/pools", handler.createPool)
			r.Get("/pools/{id}", handler.getPool)
			r.Post("/pools/{id}/activate", handler.activatePool)
			r.Get("/pools/{id}/round", handler.getRoundStatus)
			r.Get("/pools/{id}/balance", handler.getBalance)
			r.Post("/pools/{id}/cancel-round", handler.cancelRound)
			r.Get("/pools/{id}/early-payout/eligibility", handler.earlyPayoutEligibility)
			r.Post("/contributions", handler.recordContribution)
			r.Post("/holds/{id}/capture", handler.captureHold)
			r.Post("/holds/{id}/void", handler.voidHold)
			r.Post("/early-payouts", handler.initiateEarlyPayout)
			r.Post("/payouts/trigger", handler.triggerPayout)
		})
	})
	return r
}
