package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"messengerdb/pkg/errs"
	"messengerdb/pkg/logger"
	"messengerdb/pkg/models"
	"messengerdb/pkg/pagination"
	"messengerdb/pkg/utils"
)

var (
	db     *pebble.DB
	dbPath string

	// pairMu serializes conditional inserts on the canonical pair key.
	// Pebble has no compare-and-set primitive; the store is
	// single-process, so this mutex is the first-writer-wins gate for
	// concurrent first-contact sends. It is the only serialization
	// point in the store.
	pairMu sync.Mutex
)

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func ready(ctx context.Context) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first: %w", errs.ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return errs.FromStore(err)
	}
	return nil
}

// --- users ---

// SaveUser stores a user record.
func SaveUser(ctx context.Context, u models.User) error {
	if err := ready(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := db.Set([]byte(userKey(u.ID)), data, pebble.Sync); err != nil {
		logger.Error("save_user_failed", "user", u.ID, "error", err)
		return errs.FromStore(err)
	}
	logger.Info("user_saved", "user", u.ID)
	return nil
}

// GetUser returns the user record or ErrNotFound.
func GetUser(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	if err := ready(ctx); err != nil {
		return u, err
	}
	v, closer, err := db.Get([]byte(userKey(userID)))
	if err != nil {
		return u, errs.FromStore(err)
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &u); err != nil {
		return u, fmt.Errorf("invalid user record: %w", err)
	}
	return u, nil
}

// --- conversation directory ---

// GetOrCreateConversation resolves the conversation for an unordered
// user pair, creating it with a fresh identifier when none exists.
// First writer wins: a concurrent caller for the same pair reads back
// the winning identifier instead of minting a second one.
func GetOrCreateConversation(ctx context.Context, userA, userB string) (models.Conversation, bool, error) {
	var conv models.Conversation
	if err := ready(ctx); err != nil {
		return conv, false, err
	}
	pk := []byte(pairKey(userA, userB))

	pairMu.Lock()
	defer pairMu.Unlock()

	if v, closer, err := db.Get(pk); err == nil {
		convID := string(v)
		closer.Close()
		conv, err := GetConversation(ctx, convID)
		return conv, false, err
	} else if err != pebble.ErrNotFound {
		return conv, false, errs.FromStore(err)
	}

	now := time.Now().UTC().UnixNano()
	conv = models.Conversation{
		ID:            utils.GenConversationID(),
		UserA:         userA,
		UserB:         userB,
		CreatedTS:     now,
		LastMessageTS: now,
	}
	data, err := json.Marshal(conv)
	if err != nil {
		return conv, false, fmt.Errorf("failed to marshal conversation: %w", err)
	}
	// The conversation record lands before the pair mapping so that a
	// reader following the pair key never sees a dangling id.
	if err := db.Set([]byte(convMetaKey(conv.ID)), data, pebble.Sync); err != nil {
		logger.Error("save_conversation_failed", "conversation", conv.ID, "error", err)
		return conv, false, errs.FromStore(err)
	}
	if err := db.Set(pk, []byte(conv.ID), pebble.Sync); err != nil {
		logger.Error("save_pair_failed", "key", string(pk), "error", err)
		return conv, false, errs.FromStore(err)
	}
	logger.Info("conversation_created", "conversation", conv.ID, "user_a", userA, "user_b", userB)
	return conv, true, nil
}

// GetConversation returns the conversation record or ErrNotFound.
func GetConversation(ctx context.Context, convID string) (models.Conversation, error) {
	var conv models.Conversation
	if err := ready(ctx); err != nil {
		return conv, err
	}
	v, closer, err := db.Get([]byte(convMetaKey(convID)))
	if err != nil {
		return conv, errs.FromStore(err)
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &conv); err != nil {
		return conv, fmt.Errorf("invalid conversation record: %w", err)
	}
	return conv, nil
}

// UpdateConversationLastMessage overwrites only the last-message
// snapshot fields. Writes carrying a timestamp older than the stored
// snapshot are dropped so racing senders cannot roll recency backwards.
func UpdateConversationLastMessage(ctx context.Context, convID string, ts int64, preview string) error {
	if err := ready(ctx); err != nil {
		return err
	}
	conv, err := GetConversation(ctx, convID)
	if err != nil {
		return err
	}
	if ts < conv.LastMessageTS {
		return nil
	}
	conv.LastMessageTS = ts
	conv.LastMessagePreview = preview
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := db.Set([]byte(convMetaKey(convID)), data, pebble.Sync); err != nil {
		logger.Error("update_conversation_failed", "conversation", convID, "error", err)
		return errs.FromStore(err)
	}
	return nil
}

// --- message log ---

// AppendMessage assigns a message identifier and writes an immutable
// record into the conversation's log partition.
func AppendMessage(ctx context.Context, convID, sender, receiver, content string, ts int64) (models.Message, error) {
	var msg models.Message
	if err := ready(ctx); err != nil {
		return msg, err
	}
	msg = models.Message{
		ID:           utils.GenMessageID(),
		Conversation: convID,
		Sender:       sender,
		Receiver:     receiver,
		Content:      content,
		TS:           ts,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return msg, fmt.Errorf("failed to marshal message: %w", err)
	}
	key := msgKey(convID, ts, msg.ID)
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("append_message_failed", "conversation", convID, "key", key, "error", err)
		return msg, errs.FromStore(err)
	}
	logger.Debug("message_appended", "conversation", convID, "message", msg.ID)
	return msg, nil
}

// ListMessages returns one page of a conversation's log, newest first,
// ties broken by message id ascending. The cursor is an exclusive lower
// bound; rows appended after a page was issued sort before its start
// position and never appear retroactively.
func ListMessages(ctx context.Context, convID string, cur *pagination.Cursor, limit int) ([]models.Message, *pagination.Cursor, error) {
	return listMessagesFrom(ctx, convID, cur, 0, limit)
}

// ListMessagesBefore is ListMessages additionally bounded to rows with
// timestamp strictly earlier than beforeTS.
func ListMessagesBefore(ctx context.Context, convID string, beforeTS int64, cur *pagination.Cursor, limit int) ([]models.Message, *pagination.Cursor, error) {
	return listMessagesFrom(ctx, convID, cur, beforeTS, limit)
}

func listMessagesFrom(ctx context.Context, convID string, cur *pagination.Cursor, beforeTS int64, limit int) ([]models.Message, *pagination.Cursor, error) {
	if err := ready(ctx); err != nil {
		return nil, nil, err
	}
	prefix := []byte(msgPrefix(convID))
	// Resume position: the cursor key when present, otherwise the
	// first key strictly older than beforeTS. With inverted
	// timestamps "older than T" is every key at or after inv(T)+1.
	start := prefix
	skip := ""
	if cur != nil {
		skip = msgKey(convID, cur.TS, cur.ID)
		start = []byte(skip)
	} else if beforeTS > 0 {
		start = []byte(msgPrefix(convID) + invTS(beforeTS-1))
	}

	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, nil, errs.FromStore(err)
	}
	defer iter.Close()

	out := make([]models.Message, 0, limit)
	var next *pagination.Cursor
	for iter.SeekGE(start); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if skip != "" && string(iter.Key()) == skip {
			continue
		}
		if len(out) == limit {
			last := out[limit-1]
			next = &pagination.Cursor{TS: last.TS, ID: last.ID}
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, nil, fmt.Errorf("invalid message record at %q: %w", iter.Key(), err)
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, nil, errs.FromStore(err)
	}
	return out, next, nil
}

// --- conversations_by_user projection ---

// UpsertUserConversation appends a fresh ordering row for the user's
// conversation list. Older rows for the same conversation are not
// deleted here; they become logically stale and are pruned by the
// summary sweeper.
func UpsertUserConversation(ctx context.Context, s models.ConversationSummary) error {
	if err := ready(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	key := userConvKey(s.User, s.LastMessageTS, s.Conversation)
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("upsert_user_conversation_failed", "user", s.User, "conversation", s.Conversation, "error", err)
		return errs.FromStore(err)
	}
	return nil
}

// ListUserConversations returns one page of a user's conversations by
// recency. Stale rows superseded within the same page are suppressed;
// a superseded row that falls on a later page can still surface as a
// duplicate until the sweeper prunes it.
func ListUserConversations(ctx context.Context, userID string, cur *pagination.Cursor, limit int) ([]models.ConversationSummary, *pagination.Cursor, error) {
	if err := ready(ctx); err != nil {
		return nil, nil, err
	}
	prefix := []byte(userConvPrefix(userID))
	start := prefix
	skip := ""
	if cur != nil {
		skip = userConvKey(userID, cur.TS, cur.ID)
		start = []byte(skip)
	}

	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, nil, errs.FromStore(err)
	}
	defer iter.Close()

	out := make([]models.ConversationSummary, 0, limit)
	seen := make(map[string]struct{}, limit)
	if cur != nil {
		// The cursor names the conversation the previous page ended
		// on; stale rows for it right after the boundary are dups.
		seen[cur.ID] = struct{}{}
	}
	var next *pagination.Cursor
	for iter.SeekGE(start); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if skip != "" && string(iter.Key()) == skip {
			continue
		}
		var s models.ConversationSummary
		if err := json.Unmarshal(iter.Value(), &s); err != nil {
			return nil, nil, fmt.Errorf("invalid summary record at %q: %w", iter.Key(), err)
		}
		if _, dup := seen[s.Conversation]; dup {
			continue
		}
		if len(out) == limit {
			last := out[limit-1]
			next = &pagination.Cursor{TS: last.LastMessageTS, ID: last.Conversation}
			break
		}
		seen[s.Conversation] = struct{}{}
		out = append(out, s)
	}
	if err := iter.Error(); err != nil {
		return nil, nil, errs.FromStore(err)
	}
	return out, next, nil
}

// SweepStaleSummaries walks the whole conversations-by-user namespace
// and deletes rows superseded by a newer row for the same (user,
// conversation). Returns the number of rows pruned.
func SweepStaleSummaries(ctx context.Context) (int, error) {
	if err := ready(ctx); err != nil {
		return 0, err
	}
	prefix := []byte("uconv:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, errs.FromStore(err)
	}
	defer iter.Close()

	pruned := 0
	curUser := ""
	seen := map[string]struct{}{}
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if err := ctx.Err(); err != nil {
			return pruned, errs.FromStore(err)
		}
		rest := string(iter.Key()[len(prefix):])
		i := strings.LastIndex(rest, ":")
		if i < 0 {
			continue
		}
		user := rest[:i]
		_, convID, err := splitClustering(rest[i+1:])
		if err != nil {
			continue
		}
		if user != curUser {
			curUser = user
			seen = map[string]struct{}{}
		}
		// Iteration is newest-first per user, so the first row seen
		// for a conversation is the live one; later ones are stale.
		if _, dup := seen[convID]; dup {
			k := append([]byte(nil), iter.Key()...)
			if err := db.Delete(k, pebble.Sync); err != nil {
				return pruned, errs.FromStore(err)
			}
			pruned++
			continue
		}
		seen[convID] = struct{}{}
	}
	if err := iter.Error(); err != nil {
		return pruned, errs.FromStore(err)
	}
	return pruned, nil
}

// --- messages_by_user projection ---

// AppendUserMessage mirrors a message-log write into one participant's
// partition.
func AppendUserMessage(ctx context.Context, userID string, msg models.Message) error {
	if err := ready(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	key := userMsgKey(userID, msg.Conversation, msg.TS, msg.ID)
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		logger.Error("append_user_message_failed", "user", userID, "message", msg.ID, "error", err)
		return errs.FromStore(err)
	}
	return nil
}

// ListUserMessages returns one page of a user's messages across all
// their conversations, ordered by conversation id ascending then
// timestamp descending then message id ascending.
func ListUserMessages(ctx context.Context, userID string, cur *pagination.Cursor, limit int) ([]models.Message, *pagination.Cursor, error) {
	if err := ready(ctx); err != nil {
		return nil, nil, err
	}
	prefix := []byte(userMsgPrefix(userID))
	start := prefix
	skip := ""
	if cur != nil {
		if cur.Conversation == "" {
			return nil, nil, errs.InvalidArgumentf("malformed cursor")
		}
		skip = userMsgKey(userID, cur.Conversation, cur.TS, cur.ID)
		start = []byte(skip)
	}

	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, nil, errs.FromStore(err)
	}
	defer iter.Close()

	out := make([]models.Message, 0, limit)
	var next *pagination.Cursor
	for iter.SeekGE(start); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if skip != "" && string(iter.Key()) == skip {
			continue
		}
		if len(out) == limit {
			last := out[limit-1]
			next = &pagination.Cursor{TS: last.TS, ID: last.ID, Conversation: last.Conversation}
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, nil, fmt.Errorf("invalid message record at %q: %w", iter.Key(), err)
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, nil, errs.FromStore(err)
	}
	return out, next, nil
}

// --- low-level helpers ---

// ListKeys returns all keys (as strings) that start with the given
// prefix. If prefix is empty it returns all keys in the DB.
func ListKeys(prefix string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	if prefix == "" {
		for iter.First(); iter.Valid(); iter.Next() {
			out = append(out, string(iter.Key()))
		}
		return out, iter.Error()
	}
	pfx := []byte(prefix)
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		out = append(out, string(iter.Key()))
	}
	return out, iter.Error()
}

// GetKey returns the raw value for the given key.
func GetKey(key string) (string, error) {
	if db == nil {
		return "", fmt.Errorf("pebble not opened; call store.Open first")
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return string(v), nil
}

// DBSet writes a raw key (bytes) into the DB. Low-level helper used by
// admin tooling and tests.
func DBSet(key, value []byte) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	return db.Set(key, value, pebble.Sync)
}
