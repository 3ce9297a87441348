package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cloudcoder/internal/app/service"
	"cloudcoder/internal/common"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
	changeService     *service.ChangeService
}

func NewSubmissionHandler(ss *service.SubmissionService, cs *service.ChangeService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss, changeService: cs}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/submissions/{eventID}", h.getSubmission)
	r.Get("/changes/{eventID}", h.getChange)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := intParam(w, r, "eventID")
	if !ok {
		return
	}
	receipt, err := h.submissionService.Receipt(r.Context(), userID, eventID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, receipt)
}

func (h *SubmissionHandler) getChange(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	eventID, ok := intParam(w, r, "eventID")
	if !ok {
		return
	}
	change, err := h.changeService.Get(r.Context(), userID, eventID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, change)
}
