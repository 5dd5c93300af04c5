//go:build !integration

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"telegram-onboarding-bot/internal/domain/model"
)

func newTestRepo(t *testing.T) *RecordRepo {
	t.Helper()
	repo, err := NewRecordRepo(filepath.Join(t.TempDir(), "data", "onboarding.db"))
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func sampleRecord(t *testing.T, tgID int64) *model.UserRecord {
	t.Helper()
	rec, err := model.NewUserRecord("", tgID, "alice", "Canada")
	if err != nil {
		t.Fatalf("new record: %v", err)
	}
	rec.Interests = []string{"feedback", "network"}
	rec.Platforms = []string{"iOS - Swift"}
	rec.AppLink = "https://apps.example.com/1"
	rec.FullName = "Alice Doe"
	rec.ReceiptID = "01J0000000000000000000000"
	rec.CompletedAt = time.Now().UTC().Truncate(time.Second)
	return rec
}

func TestRecordRepo_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	rec := sampleRecord(t, 42)
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	g := got[0]
	if g.TelegramID != rec.TelegramID || g.Country != rec.Country ||
		g.InterestsJoined() != "feedback,network" || g.PlatformsJoined() != "iOS - Swift" ||
		g.AppLink != rec.AppLink || g.FullName != rec.FullName || g.ReceiptID != rec.ReceiptID {
		t.Errorf("round-trip mismatch: %+v vs %+v", g, rec)
	}
	if !g.CompletedAt.Equal(rec.CompletedAt) {
		t.Errorf("completed_at mismatch: %v vs %v", g.CompletedAt, rec.CompletedAt)
	}
}

func TestRecordRepo_ExistsAndOverwrite(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ok, err := repo.Exists(ctx, 42)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("exists before any write")
	}

	if err := repo.Upsert(ctx, sampleRecord(t, 42)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if ok, _ = repo.Exists(ctx, 42); !ok {
		t.Fatal("exists false after write")
	}

	// Second write for the same user replaces, never duplicates.
	second := sampleRecord(t, 42)
	second.Country = "Iceland"
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	all, _ := repo.ListAll(ctx)
	if len(all) != 1 {
		t.Fatalf("expected 1 record after overwrite, got %d", len(all))
	}
	if all[0].Country != "Iceland" {
		t.Errorf("overwrite did not replace: %q", all[0].Country)
	}
}

func TestRecordRepo_EmptyStore(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("list on empty store: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", all)
	}
}
