package homework

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/tutor-crm/backend/internal/generator"
	"github.com/tutor-crm/backend/internal/models"
)

type Handler struct {
	service *Service
	store   *Store
}

func NewHandler(service *Service, store *Store) *Handler {
	return &Handler{service: service, store: store}
}

// getUserID extracts the authenticated user ID from the request context.
func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	var req models.GenerateHomeworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if !models.ValidDifficulties[req.Difficulty] {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be 'oge', 'ege_base', 'ege_profile', or 'olympiad'"})
		return
	}

	// Default count mirrors the generator UI.
	if req.TasksCount == 0 {
		req.TasksCount = 5
	}

	resp, err := h.service.Generate(r.Context(), userID, req)
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// writeGenerateError maps pipeline error kinds onto HTTP statuses. Vendor
// detail never reaches the client — provider failures were already logged
// at the boundary and surface here as sanitized messages.
func (h *Handler) writeGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidTaskCount):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Tasks count must be between 3 and 10"})
	case errors.Is(err, ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request"})
	case errors.Is(err, ErrStudentNotFound):
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Student not found"})
	case errors.Is(err, ErrInsufficientCredits):
		writeJSON(w, http.StatusPaymentRequired, models.ErrorResponse{Error: "No AI credits left. Please upgrade your subscription."})
	case errors.Is(err, generator.ErrProviderUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "AI generator is not configured for the requested provider"})
	case errors.Is(err, generator.ErrStructuralInvalid):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Generated tasks did not match the expected structure"})
	case errors.Is(err, generator.ErrMalformedResponse):
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Invalid response format"})
	case errors.Is(err, generator.ErrRequestFailed):
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "AI service temporarily unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Generation failed"})
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	query := r.URL.Query()
	limit := intQueryParam(query.Get("limit"), 20)
	offset := intQueryParam(query.Get("offset"), 0)

	homeworks, err := h.store.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list homework"})
		return
	}

	if homeworks == nil {
		homeworks = []models.Homework{}
	}
	writeJSON(w, http.StatusOK, homeworks)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid homework ID"})
		return
	}

	hw, err := h.store.GetByID(r.Context(), id, userID)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Homework not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load homework"})
		return
	}

	writeJSON(w, http.StatusOK, hw)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid homework ID"})
		return
	}

	err = h.store.Delete(r.Context(), id, userID)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Homework not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to delete homework"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkSent(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid homework ID"})
		return
	}

	err = h.store.MarkSent(r.Context(), id, userID)
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Homework not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to update homework"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
		return
	}

	info, err := h.store.Subscription(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load subscription"})
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func intQueryParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
