package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vietchat/ollama-chat-backend/internal/domain"
)

func TestOpenSQLite_CreatesUsableDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// Round-trip through the migrated schema.
	conv, err := CreateConversation(context.Background(), db, "s1", "", "q", "a")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	var got domain.Conversation
	if err := db.First(&got, "id = ?", conv.ID).Error; err != nil {
		t.Fatalf("read back: %v", err)
	}
}

func TestOpenSQLite_MissingParentDirFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "chat.db")
	if _, err := OpenSQLite(path); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}
