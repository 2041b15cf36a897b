package uartfile

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uart.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadPacksLittleEndian(t *testing.T) {
	path := write(t, "0x41\n66\n")
	data, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []byte{0x41, 0x00, 0x42, 0x00}
	if string(data) != string(want) {
		t.Fatalf("got %v, want %v", data, want)
	}
}

func TestLoadSkipsBlankLines(t *testing.T) {
	path := write(t, "1\n\n\n2\n")
	data, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(data) != 4 {
		t.Fatalf("got %d bytes, want 4", len(data))
	}
}

func TestLoadRejectsOutOfRangeValue(t *testing.T) {
	path := write(t, "99999\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for out-of-range value")
	}
}

func TestLoadNegativeValue(t *testing.T) {
	path := write(t, "-1\n")
	data, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []byte{0xff, 0xff}
	if string(data) != string(want) {
		t.Fatalf("got %v, want %v", data, want)
	}
}
