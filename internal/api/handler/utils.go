package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cloudcoder/internal/api/middleware"
	"cloudcoder/internal/common"
)

// intParam reads a positive integer URL parameter, answering 400 when it is
// malformed.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return v, true
}

func currentUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return 0, false
	}
	return userID, true
}
