package store

import (
	"context"
	"testing"
)

func TestInitDBEmptyURL(t *testing.T) {
	if err := InitDB(context.Background(), ""); err == nil {
		t.Error("expected error for empty database URL")
	}
	if GetPool() != nil {
		t.Error("failed init must not leave a pool behind")
	}
}

func TestInitDBUnparseableURL(t *testing.T) {
	if err := InitDB(context.Background(), "://not-a-url"); err == nil {
		t.Error("expected error for unparseable database URL")
	}
	if GetPool() != nil {
		t.Error("failed init must not leave a pool behind")
	}
}
