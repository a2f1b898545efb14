package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"messengerdb/pkg/api/handlers"
)

// Handler returns the versioned JSON API router. Ambient endpoints
// (/healthz, /metrics, /docs) are mounted by the server binary.
func Handler() http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterUsers(v1)
	handlers.RegisterMessages(v1)
	handlers.RegisterConversations(v1)
	return r
}
