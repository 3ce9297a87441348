package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cloudcoder/internal/app/service"
	"cloudcoder/internal/common"
)

type SettingsHandler struct {
	settingsService *service.SettingsService
}

func NewSettingsHandler(ss *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: ss}
}

func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{name}", h.getSetting)
}

func (h *SettingsHandler) getSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.settingsService.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, setting)
}
