package matchmaking

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/users/{id}/recommendations", handler.GetRecommendations).Methods("GET")
	api.HandleFunc("/users/{id}/responses", handler.RecordResponse).Methods("POST")
}
