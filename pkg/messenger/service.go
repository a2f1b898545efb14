// Package messenger orchestrates the denormalized write path and the
// paginated read paths over the store's five collections. One logical
// send fans out into up to six physical writes that commit
// independently; the message log is the source of truth and every
// other collection is a projection that may lag behind it.
package messenger

import (
	"context"
	"time"

	"messengerdb/pkg/config"
	"messengerdb/pkg/errs"
	"messengerdb/pkg/logger"
	"messengerdb/pkg/models"
	"messengerdb/pkg/pagination"
	"messengerdb/pkg/store"
	"messengerdb/pkg/telemetry"
	"messengerdb/pkg/utils"
	"messengerdb/pkg/validation"
)

// SendMessage sends a message from sender to receiver, resolving (or
// creating) the conversation for the pair. The conversation resolution
// and the log append are fatal on failure; projection updates after
// them are soft failures that degrade read freshness, not correctness.
func SendMessage(ctx context.Context, sender, receiver, content string) (models.Message, error) {
	var msg models.Message
	if err := validation.ValidateSend(sender, receiver, content); err != nil {
		return msg, err
	}
	if _, err := store.GetUser(ctx, sender); err != nil {
		return msg, err
	}
	if _, err := store.GetUser(ctx, receiver); err != nil {
		return msg, err
	}

	conv, created, err := store.GetOrCreateConversation(ctx, sender, receiver)
	if err != nil {
		return msg, err
	}
	if created {
		telemetry.ConversationsCreated.Inc()
	}

	ts := time.Now().UTC().UnixNano()
	msg, err = store.AppendMessage(ctx, conv.ID, sender, receiver, content, ts)
	if err != nil {
		return msg, err
	}
	telemetry.MessagesSent.Inc()

	// Everything below is projection maintenance. The message is
	// durable; a failure here is logged and counted, never returned.
	pv := preview(content)
	secondary(ctx, "conversations", msg, func(sctx context.Context) error {
		return store.UpdateConversationLastMessage(sctx, conv.ID, ts, pv)
	})
	for _, p := range []struct {
		user, other string
	}{{sender, receiver}, {receiver, sender}} {
		s := models.ConversationSummary{
			User:               p.user,
			Conversation:       conv.ID,
			OtherUser:          p.other,
			LastMessageTS:      ts,
			LastMessagePreview: pv,
		}
		secondary(ctx, "conversations_by_user", msg, func(sctx context.Context) error {
			return store.UpsertUserConversation(sctx, s)
		})
		u := p.user
		secondary(ctx, "messages_by_user", msg, func(sctx context.Context) error {
			return store.AppendUserMessage(sctx, u, msg)
		})
	}
	return msg, nil
}

// secondary runs one projection write under the configured bound and
// swallows its failure into the degraded-write signal.
func secondary(ctx context.Context, projection string, msg models.Message, fn func(context.Context) error) {
	sctx := ctx
	if ms := config.SecondaryWriteTimeoutMS(); ms > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}
	if err := fn(sctx); err != nil {
		telemetry.DegradedWrites.WithLabelValues(projection).Inc()
		logger.Warn("secondary_write_degraded",
			"projection", projection,
			"conversation", msg.Conversation,
			"message", msg.ID,
			"error", err)
	}
}

// preview truncates content to the configured bound for the
// denormalized last-message snapshot.
func preview(content string) string {
	max := config.PreviewMaxLen()
	r := []rune(content)
	if len(r) <= max {
		return content
	}
	return string(r[:max])
}

// GetConversation returns the canonical conversation record.
func GetConversation(ctx context.Context, convID string) (models.Conversation, error) {
	if convID == "" {
		return models.Conversation{}, errs.InvalidArgumentf("conversation_id is required")
	}
	return store.GetConversation(ctx, convID)
}

// ListConversations returns one page of a user's conversations by
// recency. pageSize <= 0 is rejected; oversized pages are clamped.
func ListConversations(ctx context.Context, userID, cursorToken string, pageSize int) ([]models.ConversationSummary, string, error) {
	cur, limit, err := decodePage(cursorToken, pageSize)
	if err != nil {
		return nil, "", err
	}
	if _, err := store.GetUser(ctx, userID); err != nil {
		return nil, "", err
	}
	out, next, err := store.ListUserConversations(ctx, userID, cur, limit)
	if err != nil {
		return nil, "", err
	}
	return out, encode(next), nil
}

// ListMessages returns one page of a conversation's log, newest first.
// NotFound distinguishes a missing conversation from an empty one.
func ListMessages(ctx context.Context, convID, cursorToken string, pageSize int) ([]models.Message, string, error) {
	cur, limit, err := decodePage(cursorToken, pageSize)
	if err != nil {
		return nil, "", err
	}
	if _, err := store.GetConversation(ctx, convID); err != nil {
		return nil, "", err
	}
	out, next, err := store.ListMessages(ctx, convID, cur, limit)
	if err != nil {
		return nil, "", err
	}
	return out, encode(next), nil
}

// ListMessagesBefore is ListMessages bounded to timestamps strictly
// earlier than beforeTS.
func ListMessagesBefore(ctx context.Context, convID string, beforeTS int64, cursorToken string, pageSize int) ([]models.Message, string, error) {
	if beforeTS <= 0 {
		return nil, "", errs.InvalidArgumentf("before timestamp must be positive")
	}
	cur, limit, err := decodePage(cursorToken, pageSize)
	if err != nil {
		return nil, "", err
	}
	if _, err := store.GetConversation(ctx, convID); err != nil {
		return nil, "", err
	}
	out, next, err := store.ListMessagesBefore(ctx, convID, beforeTS, cur, limit)
	if err != nil {
		return nil, "", err
	}
	return out, encode(next), nil
}

// ListUserMessages returns one page of every message sent or received
// by the user, across all their conversations.
func ListUserMessages(ctx context.Context, userID, cursorToken string, pageSize int) ([]models.Message, string, error) {
	cur, limit, err := decodePage(cursorToken, pageSize)
	if err != nil {
		return nil, "", err
	}
	if _, err := store.GetUser(ctx, userID); err != nil {
		return nil, "", err
	}
	out, next, err := store.ListUserMessages(ctx, userID, cur, limit)
	if err != nil {
		return nil, "", err
	}
	return out, encode(next), nil
}

// CreateUser registers a user. Users are immutable after creation.
func CreateUser(ctx context.Context, name string) (models.User, error) {
	var u models.User
	if err := validation.ValidateUserName(name); err != nil {
		return u, err
	}
	u = models.User{
		ID:        utils.GenUserID(),
		Name:      name,
		CreatedTS: time.Now().UTC().UnixNano(),
	}
	if err := store.SaveUser(ctx, u); err != nil {
		return u, err
	}
	return u, nil
}

// GetUser returns a user record.
func GetUser(ctx context.Context, userID string) (models.User, error) {
	if userID == "" {
		return models.User{}, errs.InvalidArgumentf("user_id is required")
	}
	return store.GetUser(ctx, userID)
}

func decodePage(cursorToken string, pageSize int) (*pagination.Cursor, int, error) {
	cur, err := pagination.Decode(cursorToken)
	if err != nil {
		return nil, 0, err
	}
	_, max := config.PageSizeDefaults()
	limit, err := pagination.ClampPageSize(pageSize, max)
	if err != nil {
		return nil, 0, err
	}
	return cur, limit, nil
}

func encode(c *pagination.Cursor) string {
	if c == nil {
		return ""
	}
	return c.Encode()
}
