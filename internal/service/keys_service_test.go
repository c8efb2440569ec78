package service

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestApiKeyLimit(t *testing.T) {
	ctx := context.Background()
	keys := &memKeys{}
	svc := NewApiKeyService(keys)

	var first string
	for i := 0; i < maxApiKeys; i++ {
		key, err := svc.Create(ctx, 1)
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		if i == 0 {
			first = key
		}
	}
	if _, err := svc.Create(ctx, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected limit error, got %v", err)
	}

	userID, err := svc.GetUserID(ctx, first)
	if err != nil || userID != 1 {
		t.Fatalf("GetUserID = %d, %v", userID, err)
	}
	if _, err := svc.GetUserID(ctx, "nope"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}

	list, err := svc.List(ctx, 1)
	if err != nil || len(list) != maxApiKeys {
		t.Fatalf("List: %d, %v", len(list), err)
	}
	if !strings.HasPrefix(list[0].ApiKey, "****") || list[0].ApiKey == first {
		t.Fatalf("listed keys must be masked, got %q", list[0].ApiKey)
	}
}

func TestRemoveApiKey(t *testing.T) {
	ctx := context.Background()
	keys := &memKeys{}
	svc := NewApiKeyService(keys)
	if _, err := svc.Create(ctx, 1); err != nil {
		t.Fatal(err)
	}

	if err := svc.RemoveAPIKey(ctx, 2, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's key, got %v", err)
	}
	if err := svc.RemoveAPIKey(ctx, 1, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := svc.RemoveAPIKey(ctx, 1, 1); err != nil {
		t.Fatalf("RemoveAPIKey: %v", err)
	}
	if len(keys.rows) != 0 {
		t.Fatal("key not removed")
	}
}
