package relations

import (
	"context"
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

type CreateRequestDTO struct {
	ReceiverID int64 `json:"receiver_id" validate:"required,gt=0"`
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var dto CreateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := utils.ValidateStruct(dto); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SendConnectionRequest(r.Context(), userID, dto.ReceiverID); err != nil {
		if err == ErrCannotRequestSelf {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create connection request")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	h.respondToRequest(w, r, h.service.AcceptRequest)
}

func (h *Handler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	h.respondToRequest(w, r, h.service.DeclineRequest)
}

func (h *Handler) respondToRequest(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, requestID, userID int64) error) {
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	requestID, ok := pathID(w, r, "requestId")
	if !ok {
		return
	}

	if err := action(r.Context(), requestID, userID); err != nil {
		switch err {
		case ErrRelationNotFound:
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		case ErrNotReceiver:
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		case ErrAlreadyResolved:
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to respond to request")
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
