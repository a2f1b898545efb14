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

// RegisterMessages registers HTTP handlers for the send path.
func RegisterMessages(r *mux.Router) {
	r.HandleFunc("/messages", sendMessage).Methods(http.MethodPost)
}

func sendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sender   string `json:"sender_id"`
		Receiver string `json:"receiver_id"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errs.InvalidArgumentf("invalid json"))
		return
	}
	msg, err := messenger.SendMessage(r.Context(), req.Sender, req.Receiver, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("message_sent", "conversation", msg.Conversation, "message", msg.ID)
	_ = utils.JSONWrite(w, http.StatusCreated, msg)
}
