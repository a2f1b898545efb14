package messenger

import (
	"context"
	"errors"
	"strings"
	"testing"

	"messengerdb/pkg/config"
	"messengerdb/pkg/errs"
	"messengerdb/pkg/logger"
	"messengerdb/pkg/models"
	"messengerdb/pkg/store"
)

func setup(t *testing.T) context.Context {
	t.Helper()
	logger.Init()
	config.SetRuntime(&config.RuntimeConfig{
		DefaultPageSize: 20,
		MaxPageSize:     100,
		PreviewMaxLen:   160,
	})
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("store.Close: %v", err)
		}
	})
	return context.Background()
}

func makeUser(t *testing.T, ctx context.Context, name string) models.User {
	t.Helper()
	u, err := CreateUser(ctx, name)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u
}

func TestSendMessageScenario(t *testing.T) {
	ctx := setup(t)
	u1 := makeUser(t, ctx, "alice")
	u2 := makeUser(t, ctx, "bob")

	msg, err := SendMessage(ctx, u1.ID, u2.ID, "hi")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.Sender != u1.ID || msg.Receiver != u2.ID || msg.Content != "hi" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.ID == "" || msg.Conversation == "" || msg.TS == 0 {
		t.Fatalf("message missing assigned fields: %+v", msg)
	}

	conv, err := GetConversation(ctx, msg.Conversation)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	pair := map[string]bool{conv.UserA: true, conv.UserB: true}
	if !pair[u1.ID] || !pair[u2.ID] {
		t.Fatalf("conversation participants wrong: %+v", conv)
	}
	if conv.LastMessagePreview != "hi" || conv.LastMessageTS != msg.TS {
		t.Fatalf("snapshot not updated: %+v", conv)
	}

	// The reply reuses the same conversation and refreshes both lists.
	msg2, err := SendMessage(ctx, u2.ID, u1.ID, "hello")
	if err != nil {
		t.Fatalf("SendMessage reply: %v", err)
	}
	if msg2.Conversation != msg.Conversation {
		t.Fatalf("reply minted a new conversation: %s vs %s", msg2.Conversation, msg.Conversation)
	}
	for _, uid := range []string{u1.ID, u2.ID} {
		sums, _, err := ListConversations(ctx, uid, "", 10)
		if err != nil {
			t.Fatalf("ListConversations(%s): %v", uid, err)
		}
		if len(sums) != 1 {
			t.Fatalf("expected one conversation for %s, got %d", uid, len(sums))
		}
		if sums[0].LastMessagePreview != "hello" || sums[0].LastMessageTS != msg2.TS {
			t.Fatalf("conversation list stale for %s: %+v", uid, sums[0])
		}
	}
}

func TestSendMessageValidation(t *testing.T) {
	ctx := setup(t)
	u1 := makeUser(t, ctx, "alice")
	u2 := makeUser(t, ctx, "bob")

	if _, err := SendMessage(ctx, u1.ID, u1.ID, "self"); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("self-send must be InvalidArgument, got %v", err)
	}
	if _, err := SendMessage(ctx, u1.ID, u2.ID, ""); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("empty content must be InvalidArgument, got %v", err)
	}
	if _, err := SendMessage(ctx, u1.ID, "ghost", "hi"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown receiver must be NotFound, got %v", err)
	}
	if _, err := SendMessage(ctx, "ghost", u2.ID, "hi"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown sender must be NotFound, got %v", err)
	}
}

func TestListMessagesPagination(t *testing.T) {
	ctx := setup(t)
	u1 := makeUser(t, ctx, "alice")
	u2 := makeUser(t, ctx, "bob")

	var convID string
	for i := 0; i < 5; i++ {
		m, err := SendMessage(ctx, u1.ID, u2.ID, "n"+string(rune('0'+i)))
		if err != nil {
			t.Fatalf("SendMessage %d: %v", i, err)
		}
		convID = m.Conversation
	}

	var all []models.Message
	cursor := ""
	for {
		page, next, err := ListMessages(ctx, convID, cursor, 2)
		if err != nil {
			t.Fatalf("ListMessages: %v", err)
		}
		all = append(all, page...)
		if next == "" {
			break
		}
		cursor = next
	}
	if len(all) != 5 {
		t.Fatalf("pagination incomplete: %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].TS < all[i].TS {
			t.Fatalf("not newest-first at %d", i)
		}
	}
	if all[0].Content != "n4" {
		t.Fatalf("newest message first expected, got %q", all[0].Content)
	}
}

func TestListMessagesBeforeSubset(t *testing.T) {
	ctx := setup(t)
	u1 := makeUser(t, ctx, "alice")
	u2 := makeUser(t, ctx, "bob")

	var msgs []models.Message
	for i := 0; i < 4; i++ {
		m, err := SendMessage(ctx, u1.ID, u2.ID, "m")
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		msgs = append(msgs, m)
	}
	cut := msgs[2].TS
	page, _, err := ListMessagesBefore(ctx, msgs[0].Conversation, cut, "", 10)
	if err != nil {
		t.Fatalf("ListMessagesBefore: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 messages strictly before cut, got %d", len(page))
	}
	for _, m := range page {
		if m.TS >= cut {
			t.Fatalf("bound violated: %d >= %d", m.TS, cut)
		}
	}
}

func TestReadPathsDistinguishMissingConversation(t *testing.T) {
	ctx := setup(t)
	if _, _, err := ListMessages(ctx, "missing", "", 10); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected NotFound for missing conversation, got %v", err)
	}
	if _, _, err := ListMessagesBefore(ctx, "missing", 1, "", 10); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected NotFound for bounded listing, got %v", err)
	}
	if _, _, err := ListConversations(ctx, "missing", "", 10); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected NotFound for unknown user, got %v", err)
	}
}

func TestPageSizeRules(t *testing.T) {
	ctx := setup(t)
	u1 := makeUser(t, ctx, "alice")
	u2 := makeUser(t, ctx, "bob")
	m, err := SendMessage(ctx, u1.ID, u2.ID, "hi")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if _, _, err := ListMessages(ctx, m.Conversation, "", 0); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("page_size=0 must be rejected, got %v", err)
	}
	if _, _, err := ListMessages(ctx, m.Conversation, "", -1); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("negative page_size must be rejected, got %v", err)
	}
	// Above the maximum: clamped, not rejected.
	if _, _, err := ListMessages(ctx, m.Conversation, "", 100000); err != nil {
		t.Fatalf("oversized page_size must clamp, got %v", err)
	}
	if _, _, err := ListMessages(ctx, m.Conversation, "!!!", 10); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("malformed cursor must be rejected, got %v", err)
	}
}

func TestListUserMessagesCoversBothSides(t *testing.T) {
	ctx := setup(t)
	u1 := makeUser(t, ctx, "alice")
	u2 := makeUser(t, ctx, "bob")
	u3 := makeUser(t, ctx, "carol")

	if _, err := SendMessage(ctx, u1.ID, u2.ID, "to-bob"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if _, err := SendMessage(ctx, u3.ID, u1.ID, "from-carol"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	all, _, err := ListUserMessages(ctx, u1.ID, "", 10)
	if err != nil {
		t.Fatalf("ListUserMessages: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both sent and received messages, got %d", len(all))
	}
	contents := map[string]bool{}
	for _, m := range all {
		contents[m.Content] = true
	}
	if !contents["to-bob"] || !contents["from-carol"] {
		t.Fatalf("missing messages: %+v", contents)
	}
}

func TestPreviewTruncation(t *testing.T) {
	ctx := setup(t)
	config.SetRuntime(&config.RuntimeConfig{
		DefaultPageSize: 20, MaxPageSize: 100, PreviewMaxLen: 8,
	})
	u1 := makeUser(t, ctx, "alice")
	u2 := makeUser(t, ctx, "bob")

	long := strings.Repeat("x", 40)
	m, err := SendMessage(ctx, u1.ID, u2.ID, long)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if m.Content != long {
		t.Fatalf("log content must not be truncated")
	}
	conv, err := GetConversation(ctx, m.Conversation)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if conv.LastMessagePreview != strings.Repeat("x", 8) {
		t.Fatalf("preview not truncated: %q", conv.LastMessagePreview)
	}
}

func TestCreateUserValidation(t *testing.T) {
	ctx := setup(t)
	if _, err := CreateUser(ctx, "  "); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("blank username must be rejected, got %v", err)
	}
	u := makeUser(t, ctx, "dave")
	got, err := GetUser(ctx, u.ID)
	if err != nil || got.Name != "dave" {
		t.Fatalf("GetUser: %+v, %v", got, err)
	}
}
