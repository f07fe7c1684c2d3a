package settings

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetMissingKey(t *testing.T) {
	db := openTestDB(t)

	value, ok, err := db.Get("absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Errorf("Get() ok = true, want false")
	}
	if value != "" {
		t.Errorf("Get() value = %q, want empty", value)
	}
}

func TestSetGetDelete(t *testing.T) {
	db := openTestDB(t)

	if err := db.Set("session", "payload"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, ok, err := db.Get("session")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || value != "payload" {
		t.Errorf("Get() = (%q, %v), want (\"payload\", true)", value, ok)
	}

	if err := db.Set("session", "replaced"); err != nil {
		t.Fatalf("Set() upsert error = %v", err)
	}
	value, _, err = db.Get("session")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "replaced" {
		t.Errorf("Get() after upsert = %q, want %q", value, "replaced")
	}

	if err := db.Delete("session"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, ok, err = db.Get("session")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Errorf("Get() after delete ok = true, want false")
	}
}

func TestDeleteMissingKeyIsNoOp(t *testing.T) {
	db := openTestDB(t)

	if err := db.Delete("absent"); err != nil {
		t.Errorf("Delete() error = %v, want nil", err)
	}
}
