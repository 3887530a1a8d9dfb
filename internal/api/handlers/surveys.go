package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/apperr"
	"github.com/npspulse/backend/internal/dispatch"
	"github.com/npspulse/backend/internal/response"
	"github.com/npspulse/backend/internal/survey"
	"github.com/npspulse/backend/internal/tenant"
)

const defaultPageLimit = 20

type SurveyHandler struct {
	surveys   *survey.Service
	dispatch  *dispatch.Service
	responses *response.Service
}

func NewSurveyHandler(surveys *survey.Service, d *dispatch.Service, responses *response.Service) *SurveyHandler {
	return &SurveyHandler{surveys: surveys, dispatch: d, responses: responses}
}

func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := tenant.IDFromContext(r.Context())
	q := r.URL.Query()

	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), defaultPageLimit)
	params := survey.ListParams{
		Status:    q.Get("status"),
		Page:      page,
		Limit:     limit,
		SortBy:    q.Get("sortBy"),
		Ascending: q.Get("order") == "asc",
	}

	items, total, err := h.surveys.List(r.Context(), tenantID, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items, Meta{Page: page, Limit: limit, Total: total})
}

func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sv, err := h.surveys.Get(r.Context(), tenant.IDFromContext(r.Context()), surveyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sv)
}

func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req survey.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user := tenant.UserFromContext(r.Context())
	sv, err := h.surveys.Create(r.Context(), tenant.IDFromContext(r.Context()), user.ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, sv)
}

func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req survey.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sv, err := h.surveys.Update(r.Context(), tenant.IDFromContext(r.Context()), surveyID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, sv)
}

func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.surveys.Delete(r.Context(), tenant.IDFromContext(r.Context()), surveyID); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "survey deleted"})
}

func (h *SurveyHandler) Send(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req dispatch.SendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.dispatch.SendSurvey(r.Context(), tenant.IDFromContext(r.Context()), surveyID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusAccepted, result)
}

func (h *SurveyHandler) Responses(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()

	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), defaultPageLimit)
	params := response.ListParams{Page: page, Limit: limit}
	if params.DateFrom, err = queryTime(q.Get("dateFrom")); err != nil {
		writeError(w, r, err)
		return
	}
	if params.DateTo, err = queryTime(q.Get("dateTo")); err != nil {
		writeError(w, r, err)
		return
	}

	items, total, err := h.responses.ListBySurvey(r.Context(), tenant.IDFromContext(r.Context()), surveyID, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, items, Meta{Page: page, Limit: limit, Total: total})
}

func (h *SurveyHandler) Summary(w http.ResponseWriter, r *http.Request) {
	surveyID, err := surveyIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.responses.Summarize(r.Context(), tenant.IDFromContext(r.Context()), surveyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

func surveyIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid survey id")
	}
	return id, nil
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func queryTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.Validation("invalid timestamp, expected RFC 3339: " + raw)
	}
	return &t, nil
}
