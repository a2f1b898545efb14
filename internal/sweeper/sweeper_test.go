package sweeper

import (
	"context"
	"testing"

	"messengerdb/pkg/config"
	"messengerdb/pkg/logger"
	"messengerdb/pkg/models"
	"messengerdb/pkg/store"
)

func openStore(t *testing.T) {
	t.Helper()
	logger.Init()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("store.Close: %v", err)
		}
	})
}

func TestRunOncePrunesSupersededRows(t *testing.T) {
	openStore(t)
	ctx := context.Background()

	// Three recency bumps for the same conversation leave two stale
	// ordering rows behind.
	for _, ts := range []int64{100, 200, 300} {
		s := models.ConversationSummary{
			User:               "u1",
			Conversation:       "c1",
			OtherUser:          "u2",
			LastMessageTS:      ts,
			LastMessagePreview: "p",
		}
		if err := store.UpsertUserConversation(ctx, s); err != nil {
			t.Fatalf("UpsertUserConversation(%d): %v", ts, err)
		}
	}
	before, err := store.ListKeys("uconv:u1:")
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(before) != 3 {
		t.Fatalf("expected 3 rows before sweep, got %d", len(before))
	}

	if err := RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	after, err := store.ListKeys("uconv:u1:")
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(after) != 1 {
		t.Fatalf("expected 1 row after sweep, got %d", len(after))
	}

	sums, _, err := store.ListUserConversations(ctx, "u1", nil, 10)
	if err != nil {
		t.Fatalf("ListUserConversations: %v", err)
	}
	if len(sums) != 1 || sums[0].LastMessageTS != 300 {
		t.Fatalf("sweep kept the wrong row: %+v", sums)
	}
}

func TestStartRejectsInvalidCron(t *testing.T) {
	openStore(t)
	cfg := &config.Config{}
	cfg.Sweeper.Enabled = true
	cfg.Sweeper.Cron = "not a cron"
	if _, err := Start(context.Background(), cfg); err == nil {
		t.Fatalf("invalid cron must be rejected")
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	openStore(t)
	cfg := &config.Config{}
	cancel, err := Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("disabled sweeper must not fail: %v", err)
	}
	cancel()
}
