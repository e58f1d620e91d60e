package matchmaking

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/imadgeboyega/orbit-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type RecordResponseDTO struct {
	CandidateID int64  `json:"candidate_id" validate:"required,gt=0"`
	Action      string `json:"action" validate:"required,oneof=connected skipped hidden"`
}

// GetRecommendations serves the user's current recommendation view, in
// whichever mode they are in.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	recs, err := h.service.GetRecommendations(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch recommendations")
		return
	}

	utils.RespondWithData(w, http.StatusOK, recs)
}

// RecordResponse applies the user's verdict on a shown candidate.
func (h *Handler) RecordResponse(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var dto RecordResponseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.RecordResponse(r.Context(), userID, dto.CandidateID, dto.Action); err != nil {
		switch err {
		case ErrInvalidAction:
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case ErrNoActiveDrop:
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		case ErrDropAlreadyClosed:
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record response")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
