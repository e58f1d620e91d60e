package relations

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/users/{id}/requests", handler.CreateRequest).Methods("POST")
	api.HandleFunc("/users/{id}/requests/{requestId}/accept", handler.AcceptRequest).Methods("POST")
	api.HandleFunc("/users/{id}/requests/{requestId}/decline", handler.DeclineRequest).Methods("POST")
}
