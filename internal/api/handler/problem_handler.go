package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cloudcoder/internal/app/service"
	"cloudcoder/internal/common"
)

type ProblemHandler struct {
	problemService    *service.ProblemService
	changeService     *service.ChangeService
	submissionService *service.SubmissionService
}

func NewProblemHandler(ps *service.ProblemService, cs *service.ChangeService, ss *service.SubmissionService) *ProblemHandler {
	return &ProblemHandler{problemService: ps, changeService: cs, submissionService: ss}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{problemID}", func(r chi.Router) {
		r.Get("/", h.getProblem)
		r.Get("/testcases", h.getTestCases)
		r.Get("/summary", h.getSummary)
		r.Get("/export", h.exportProblem)
		r.Get("/changes", h.getChanges)
		r.Post("/changes", h.storeChanges)
		r.Get("/changes/latest", h.getLatestChange)
		r.Get("/receipt", h.getReceipt)
	})
}

func (h *ProblemHandler) ids(w http.ResponseWriter, r *http.Request) (userID, problemID int, ok bool) {
	if userID, ok = currentUserID(w, r); !ok {
		return 0, 0, false
	}
	if problemID, ok = intParam(w, r, "problemID"); !ok {
		return 0, 0, false
	}
	return userID, problemID, true
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	userID, problemID, ok := h.ids(w, r)
	if !ok {
		return
	}
	problem, err := h.problemService.Get(r.Context(), userID, problemID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) getTestCases(w http.ResponseWriter, r *http.Request) {
	userID, problemID, ok := h.ids(w, r)
	if !ok {
		return
	}
	testCases, err := h.problemService.TestCases(r.Context(), userID, problemID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, testCases)
}

func (h *ProblemHandler) getSummary(w http.ResponseWriter, r *http.Request) {
	userID, problemID, ok := h.ids(w, r)
	if !ok {
		return
	}
	summary, err := h.problemService.Summary(r.Context(), userID, problemID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, summary)
}

func (h *ProblemHandler) exportProblem(w http.ResponseWriter, r *http.Request) {
	userID, problemID, ok := h.ids(w, r)
	if !ok {
		return
	}
	file, err := h.problemService.Export(r.Context(), userID, problemID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Content)
}

// getChanges returns the caller's changes newer than the "since" event id.
func (h *ProblemHandler) getChanges(w http.ResponseWriter, r *http.Request) {
	userID, problemID, ok := h.ids(w, r)
	if !ok {
		return
	}
	baseRev := 0
	if s := r.URL.Query().Get("since"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			common.RespondWithError(w, http.StatusBadRequest, "Invalid since parameter")
			return
		}
		baseRev = v
	}
	changes, err := h.changeService.Since(r.Context(), userID, problemID, baseRev)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, changes)
}

func (h *ProblemHandler) storeChanges(w http.ResponseWriter, r *http.Request) {
	userID, problemID, ok := h.ids(w, r)
	if !ok {
		return
	}
	var req service.StoreChangesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	changes, err := h.changeService.Store(r.Context(), userID, problemID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, changes)
}

func (h *ProblemHandler) getLatestChange(w http.ResponseWriter, r *http.Request) {
	userID, problemID, ok := h.ids(w, r)
	if !ok {
		return
	}
	fullText := r.URL.Query().Get("fulltext") == "true"
	change, err := h.changeService.Latest(r.Context(), userID, problemID, fullText)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, change)
}

func (h *ProblemHandler) getReceipt(w http.ResponseWriter, r *http.Request) {
	userID, problemID, ok := h.ids(w, r)
	if !ok {
		return
	}
	receipt, err := h.submissionService.LatestReceipt(r.Context(), userID, problemID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, receipt)
}
