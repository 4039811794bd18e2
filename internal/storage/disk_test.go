package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	db := filepath.Join(dir, "history.db")
	if err := os.WriteFile(db, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsageBytes(db)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("single file: got %d bytes, want 5", got)
	}

	if err := os.WriteFile(db+"-wal", []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	got, _ = DiskUsageBytes(db)
	if got != 8 {
		t.Errorf("with wal: got %d bytes, want 8", got)
	}

	out := filepath.Join(dir, "out")
	if err := os.MkdirAll(filepath.Join(out, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(out, "a.txt"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(out, "nested", "b.txt"), []byte("cde"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = DiskUsageBytes(db, out, "", filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatal(err)
	}
	if got != 13 {
		t.Errorf("combined: got %d bytes, want 13", got)
	}
}
