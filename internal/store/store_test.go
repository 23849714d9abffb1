package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSQLiteURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(ctx, "sqlite://"+path, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close(ctx)

	if s.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite", s.Backend)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), "sqlite://", ""); err == nil {
		t.Error("expected error for empty path")
	}
}
