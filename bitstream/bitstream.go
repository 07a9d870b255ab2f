// Copyright (c) 2021-2024 Melbourne Instruments, Australia

// Package bitstream loads FPGA bitstream images for transfer.
package bitstream

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrUnreadable indicates a bitstream image could not be opened or read
// in full.
var ErrUnreadable = errors.New("bitstream unreadable")

// Load reads the bitstream image at path fully into memory. Images are on
// the order of hundreds of kilobytes, so whole-file buffering is the
// intended tradeoff.
func Load(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	data := make([]byte, fi.Size())
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	return data, nil
}
