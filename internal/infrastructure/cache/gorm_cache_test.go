package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"estateoracle/internal/infrastructure/persistence/gormdb/model"
)

func setupGormCache(t *testing.T) *GormCache {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "cache.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&model.CacheEntry{}); err != nil {
		t.Fatalf("auto migrate oracle_kv: %v", err)
	}

	return NewGormCache(db)
}

func TestGormCacheSetGetDelete(t *testing.T) {
	cache := setupGormCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "oracle:cursor", "1200", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "oracle:cursor")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "1200" {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Set(ctx, "oracle:cursor", "1300", 0); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}
	value, found, err = cache.Get(ctx, "oracle:cursor")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "1300" {
		t.Fatalf("Get() after update = %q, found=%v", value, found)
	}

	if err := cache.Delete(ctx, "oracle:cursor"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, found, err = cache.Get(ctx, "oracle:cursor")
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if found {
		t.Fatalf("Get() expected found=false after delete")
	}
}

func TestGormCacheExpiresKeys(t *testing.T) {
	cache := setupGormCache(t)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "oracle:inflight:7", "{}", 10*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	now = now.Add(9 * time.Minute)
	if _, found, err := cache.Get(ctx, "oracle:inflight:7"); err != nil || !found {
		t.Fatalf("Get() before expiry found=%v err=%v", found, err)
	}

	now = now.Add(time.Minute)
	if _, found, err := cache.Get(ctx, "oracle:inflight:7"); err != nil || found {
		t.Fatalf("Get() at expiry found=%v err=%v, want not found", found, err)
	}

	if err := cache.Set(ctx, "oracle:inflight:7", "{}", 0); err != nil {
		t.Fatalf("Set(no ttl) error = %v", err)
	}
	now = now.Add(24 * time.Hour)
	if _, found, err := cache.Get(ctx, "oracle:inflight:7"); err != nil || !found {
		t.Fatalf("Get() without ttl found=%v err=%v", found, err)
	}
}

func TestGormCacheRejectsEmptyKey(t *testing.T) {
	cache := setupGormCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, ""); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if err := cache.Delete(ctx, " "); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}
