package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cloudcoder/internal/app/service"
	"cloudcoder/internal/common"
)

type CourseHandler struct {
	courseService  *service.CourseService
	problemService *service.ProblemService
}

func NewCourseHandler(cs *service.CourseService, ps *service.ProblemService) *CourseHandler {
	return &CourseHandler{courseService: cs, problemService: ps}
}

func (h *CourseHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listCourses)
	r.Route("/{courseID}", func(r chi.Router) {
		r.Get("/problems", h.listProblems)
		r.Put("/problems", h.storeProblem)
		r.Post("/problems/import", h.importProblem)
		r.Get("/users", h.listUsers)
		r.Post("/users/import", h.importUsers)
	})
}

func (h *CourseHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	courses, err := h.courseService.CoursesForUser(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, courses)
}

// listProblems answers with each visible problem and the caller's latest
// receipt for it.
func (h *CourseHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	courseID, ok := intParam(w, r, "courseID")
	if !ok {
		return
	}
	problems, err := h.courseService.ProblemsWithReceipts(r.Context(), userID, courseID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}

func (h *CourseHandler) storeProblem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	courseID, ok := intParam(w, r, "courseID")
	if !ok {
		return
	}
	var req service.StoreProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	stored, err := h.problemService.Store(r.Context(), userID, courseID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stored)
}

func (h *CourseHandler) importProblem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	courseID, ok := intParam(w, r, "courseID")
	if !ok {
		return
	}
	stored, err := h.problemService.Import(r.Context(), userID, courseID, r.Body)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, stored)
}

func (h *CourseHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	courseID, ok := intParam(w, r, "courseID")
	if !ok {
		return
	}
	users, err := h.courseService.Users(r.Context(), userID, courseID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}

// importUsers takes the tab-separated import format as the request body.
func (h *CourseHandler) importUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	courseID, ok := intParam(w, r, "courseID")
	if !ok {
		return
	}
	n, err := h.courseService.ImportUsers(r.Context(), userID, courseID, r.Body)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, map[string]int{"imported": n})
}
