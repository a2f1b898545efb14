package handlers

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/gorilla/mux"

	"messengerdb/pkg/errs"
	"messengerdb/pkg/messenger"
	"messengerdb/pkg/utils"
)

// RegisterConversations registers HTTP handlers for conversation reads.
func RegisterConversations(r *mux.Router) {
	r.HandleFunc("/conversations/{id}", getConversation).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{id}/messages", listConversationMessages).Methods(http.MethodGet)
}

func getConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := messenger.GetConversation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, conv)
}

// listConversationMessages serves both the plain listing and the
// timestamp-bounded one: a `before` query parameter (UnixNano) switches
// to the bounded variant.
func listConversationMessages(w http.ResponseWriter, r *http.Request) {
	size, err := pageSizeParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	convID := mux.Vars(r)["id"]
	cursor := r.URL.Query().Get("cursor")

	var out any
	var next string
	if v := r.URL.Query().Get("before"); v != "" {
		before, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			writeError(w, errs.InvalidArgumentf("before must be a unix-nano timestamp, got %q", v))
			return
		}
		out, next, err = messenger.ListMessagesBefore(r.Context(), convID, before, cursor, size)
	} else {
		out, next, err = messenger.ListMessages(r.Context(), convID, cursor, size)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("messages_list", "conversation", convID)
	_ = utils.JSONWrite(w, http.StatusOK, page{Data: out, NextCursor: next})
}
