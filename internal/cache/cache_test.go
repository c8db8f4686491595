package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/esyasil/clearroom/pkg/models"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	cache, err := NewCache(mr.Host(), mr.Server().Addr().Port, "", 0, time.Minute)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create cache: %v", err)
	}

	return cache, mr
}

func TestNewCache(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCache_AccountOperations(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	account := &models.Account{
		ID:                 "user-1",
		Email:              "user@example.com",
		Credits:            5,
		SubscriptionStatus: models.SubscriptionStatusNone,
	}

	// Miss before set
	got, err := cache.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got != nil {
		t.Error("Expected cache miss before set")
	}

	if err := cache.SetAccount(ctx, account); err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}

	got, err = cache.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected cache hit after set")
	}
	if got.Credits != 5 {
		t.Errorf("Expected 5 credits, got %d", got.Credits)
	}

	if err := cache.InvalidateAccount(ctx, account.ID); err != nil {
		t.Fatalf("InvalidateAccount failed: %v", err)
	}

	got, err = cache.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got != nil {
		t.Error("Expected cache miss after invalidation")
	}
}

func TestCache_AdminStats(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	stats := &models.AdminStats{
		TotalUsers:            10,
		TotalProcessedBatches: 42,
		TotalProcessedImages:  120,
	}

	if err := cache.SetAdminStats(ctx, stats); err != nil {
		t.Fatalf("SetAdminStats failed: %v", err)
	}

	got, err := cache.GetAdminStats(ctx)
	if err != nil {
		t.Fatalf("GetAdminStats failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected cache hit")
	}
	if got.TotalProcessedBatches != 42 {
		t.Errorf("Expected 42 batches, got %d", got.TotalProcessedBatches)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache, mr := setupTestCache(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	account := &models.Account{ID: "user-2", Credits: 3}
	if err := cache.SetAccount(ctx, account); err != nil {
		t.Fatalf("SetAccount failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	got, err := cache.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got != nil {
		t.Error("Expected entry to expire after TTL")
	}
}
