package handlers

import (
	"net/http"

	"github.com/npspulse/backend/internal/tenant"
)

type TenantHandler struct {
	svc *tenant.Service
}

func NewTenantHandler(svc *tenant.Service) *TenantHandler {
	return &TenantHandler{svc: svc}
}

func (h *TenantHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetByID(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t.Settings)
}

func (h *TenantHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch tenant.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.svc.UpdateSettings(r.Context(), tenant.IDFromContext(r.Context()), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t.Settings)
}
