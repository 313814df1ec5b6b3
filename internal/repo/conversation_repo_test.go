package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vietchat/ollama-chat-backend/internal/domain"
)

func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedTurn(t *testing.T, db *gorm.DB, id, session, user, msg string, at time.Time) {
	t.Helper()
	c := domain.Conversation{
		ID: id, SessionID: session, UserID: user,
		UserMessage: msg, BotResponse: "r-" + id, CreatedAt: at,
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestCreateConversation_Error_NoTable(t *testing.T) {
	db := newRepoDB(t /* no migrations */)
	c, err := CreateConversation(context.Background(), db, "s1", "", "hi", "hello")
	if err == nil || c != nil {
		t.Fatalf("expected error creating without table, got conv=%v err=%v", c, err)
	}
}

func TestCreateConversation_Success_PersistsAndSetsFields(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})

	start := time.Now().UTC().Add(-time.Minute)
	c, err := CreateConversation(context.Background(), db, "s1", "u1", "Xin chào", "Chào bạn")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if c.ID == "" || c.SessionID != "s1" || c.UserID != "u1" {
		t.Fatalf("unexpected fields: %+v", c)
	}
	if c.Rating != nil || c.Feedback != nil {
		t.Fatalf("new conversation must be unrated: %+v", c)
	}
	if c.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt seems unset: %v", c.CreatedAt)
	}
	// round-trip
	var got domain.Conversation
	if err := db.First(&got, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("load created conversation: %v", err)
	}
	if got.UserMessage != "Xin chào" || got.BotResponse != "Chào bạn" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestListConversations_OrderAscendingAndOwnerScope(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	seedTurn(t, db, "c2", "s1", "u1", "second", t1.Add(time.Hour))
	seedTurn(t, db, "c1", "s1", "u1", "first", t1)
	seedTurn(t, db, "c3", "s1", "u2", "other owner", t1.Add(2*time.Hour))
	seedTurn(t, db, "cx", "s2", "u1", "other session", t1)

	// Unscoped: everything in s1, oldest first.
	list, err := ListConversations(context.Background(), db, "s1", "")
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 3 || list[0].ID != "c1" || list[1].ID != "c2" || list[2].ID != "c3" {
		t.Fatalf("unexpected unscoped order: %#v", list)
	}

	// Scoped to u1: the u2 turn must not appear even with a known session id.
	list, err = ListConversations(context.Background(), db, "s1", "u1")
	if err != nil {
		t.Fatalf("ListConversations scoped: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c1" || list[1].ID != "c2" {
		t.Fatalf("owner scope leaked rows: %#v", list)
	}
}

func TestListAllConversations_ScopedAndOrdered(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})

	t1 := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	seedTurn(t, db, "a1", "s1", "u1", "m1", t1)
	seedTurn(t, db, "b1", "s2", "u1", "m2", t1.Add(time.Hour))
	seedTurn(t, db, "z1", "s3", "u2", "m3", t1.Add(2*time.Hour))

	all, err := ListAllConversations(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("ListAllConversations: %v", err)
	}
	if len(all) != 2 || all[0].ID != "a1" || all[1].ID != "b1" {
		t.Fatalf("unexpected result: %#v", all)
	}
}

func TestRateConversation_NotFoundAndOwnerScope(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})
	seedTurn(t, db, "c1", "s1", "u1", "m", time.Now().UTC())

	if err := RateConversation(context.Background(), db, "missing", "", 4, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
	// Wrong owner must behave exactly like a missing record.
	if err := RateConversation(context.Background(), db, "c1", "u2", 4, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestRateConversation_OverwritesRatingAndFeedback(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})
	seedTurn(t, db, "c1", "s1", "u1", "m", time.Now().UTC())

	fb := "good"
	if err := RateConversation(context.Background(), db, "c1", "u1", 4.5, &fb); err != nil {
		t.Fatalf("rate: %v", err)
	}
	var got domain.Conversation
	if err := db.First(&got, "id = ?", "c1").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Rating == nil || *got.Rating != 4.5 || got.Feedback == nil || *got.Feedback != "good" {
		t.Fatalf("rating not applied: %+v", got)
	}

	// A later call overwrites both fields, including clearing feedback.
	if err := RateConversation(context.Background(), db, "c1", "u1", 2, nil); err != nil {
		t.Fatalf("re-rate: %v", err)
	}
	if err := db.First(&got, "id = ?", "c1").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Rating == nil || *got.Rating != 2 || got.Feedback != nil {
		t.Fatalf("re-rate not applied: %+v", got)
	}
}

func TestDeleteSession_RemovesAllAndOnlyMatching(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})

	now := time.Now().UTC()
	seedTurn(t, db, "c1", "s1", "u1", "m1", now)
	seedTurn(t, db, "c2", "s1", "u1", "m2", now.Add(time.Minute))
	seedTurn(t, db, "c3", "s2", "u1", "m3", now)
	seedTurn(t, db, "c4", "s1", "u2", "m4", now)

	n, err := DeleteSession(context.Background(), db, "s1", "u1")
	if err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows deleted, got %d", n)
	}

	// u1's view of s1 is now empty; u2's turn and s2 survive.
	left, err := ListConversations(context.Background(), db, "s1", "u1")
	if err != nil || len(left) != 0 {
		t.Fatalf("history after delete = %v, err %v", left, err)
	}
	var total int64
	if err := db.Model(&domain.Conversation{}).Count(&total).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 surviving rows, got %d", total)
	}
}

func TestDeleteSession_ZeroRowsForUnknownSession(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})
	n, err := DeleteSession(context.Background(), db, "nope", "")
	if err != nil || n != 0 {
		t.Fatalf("expected (0, nil), got (%d, %v)", n, err)
	}
}

func TestSessionsStats(t *testing.T) {
	db := newRepoDB(t, &domain.Conversation{})

	count, maxTS, err := SessionsStats(context.Background(), db, "u1")
	if err != nil || count != 0 || maxTS != nil {
		t.Fatalf("empty stats = (%d, %v, %v)", count, maxTS, err)
	}

	t1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	seedTurn(t, db, "c1", "s1", "u1", "m", t1)
	seedTurn(t, db, "c2", "s2", "u1", "m", t1.Add(time.Hour))

	count, maxTS, err = SessionsStats(context.Background(), db, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 || maxTS == nil || !maxTS.Equal(t1.Add(time.Hour)) {
		t.Fatalf("stats = (%d, %v)", count, maxTS)
	}
}
