// Copyright (c) 2021-2024 Melbourne Instruments, Australia

package bitstream

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	want := []byte{0x01, 0x00, 0xFF, 0x55}
	path := filepath.Join(t.TempDir(), "test.rbf")
	if err := os.WriteFile(path, want, 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.rbf"))
	if !errors.Is(err, ErrUnreadable) {
		t.Errorf("Load error = %v, want ErrUnreadable", err)
	}
}
