package handlers

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/gorilla/mux"

	"messengerdb/pkg/errs"
	"messengerdb/pkg/messenger"
	"messengerdb/pkg/utils"
)

// RegisterUsers registers HTTP handlers for user endpoints.
func RegisterUsers(r *mux.Router) {
	r.HandleFunc("/users", createUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id}", getUser).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/conversations", listUserConversations).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/messages", listUserMessages).Methods(http.MethodGet)
}

func createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.InvalidArgumentf("invalid json"))
		return
	}
	u, err := messenger.CreateUser(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("user_created", "user", u.ID)
	_ = utils.JSONWrite(w, http.StatusCreated, u)
}

func getUser(w http.ResponseWriter, r *http.Request) {
	u, err := messenger.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u)
}

func listUserConversations(w http.ResponseWriter, r *http.Request) {
	size, err := pageSizeParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID := mux.Vars(r)["id"]
	out, next, err := messenger.ListConversations(r.Context(), userID, r.URL.Query().Get("cursor"), size)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("conversations_list", "user", userID, "count", len(out))
	_ = utils.JSONWrite(w, http.StatusOK, page{Data: out, NextCursor: next})
}

func listUserMessages(w http.ResponseWriter, r *http.Request) {
	size, err := pageSizeParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID := mux.Vars(r)["id"]
	out, next, err := messenger.ListUserMessages(r.Context(), userID, r.URL.Query().Get("cursor"), size)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("user_messages_list", "user", userID, "count", len(out))
	_ = utils.JSONWrite(w, http.StatusOK, page{Data: out, NextCursor: next})
}
