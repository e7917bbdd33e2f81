// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const redacted = "[redacted]"

// ErrEmpty is returned when a token source holds nothing but
// whitespace.
var ErrEmpty = errors.New("secret: token is empty")

// Token is a bearer token in protected memory. The zero value is not
// usable; a nil *Token means "no token" and is safe to call Reveal,
// String and Close on.
type Token struct {
	mu     sync.Mutex
	data   []byte
	locked bool
	closed bool
}

// NewToken copies source into protected memory and zeros source.
// Surrounding whitespace is dropped.
func NewToken(source []byte) (*Token, error) {
	trimmed := bytes.TrimSpace(source)
	if len(trimmed) == 0 {
		zero(source)
		return nil, ErrEmpty
	}

	data, err := unix.Mmap(-1, 0, len(trimmed), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		zero(source)
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munmap(data)
		zero(source)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP) failed: %w", err)
	}
	// A zero RLIMIT_MEMLOCK is common in containers. The region is
	// still off-heap and out of core dumps without the lock.
	locked := unix.Mlock(data) == nil

	copy(data, trimmed)
	zero(source)
	return &Token{data: data, locked: locked}, nil
}

// NewTokenFromString is NewToken for values that are already strings,
// such as environment variables. The string itself cannot be zeroed.
func NewTokenFromString(value string) (*Token, error) {
	return NewToken([]byte(value))
}

// ReadToken reads a token from a file, or the first line of stdin when
// path is "-".
func ReadToken(path string) (*Token, error) {
	var data []byte
	if path == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("secret: reading stdin: %w", err)
			}
			return nil, ErrEmpty
		}
		data = scanner.Bytes()
	} else {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("secret: %w", err)
		}
	}
	return NewToken(data)
}

// Reveal returns the token value. Call it only at the boundary that
// sends the token. Reveal on a nil Token returns "". Panics after
// Close.
func (t *Token) Reveal() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		panic("secret: read from closed token")
	}
	return string(t.data)
}

// Len returns the length of the token value.
func (t *Token) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.data)
}

// Locked reports whether the token's memory is locked against swap.
func (t *Token) Locked() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locked
}

// String returns a redacted placeholder.
func (t *Token) String() string { return redacted }

// LogValue returns a redacted placeholder.
func (t *Token) LogValue() slog.Value { return slog.StringValue(redacted) }

// Close zeros and releases the memory. Close is idempotent.
func (t *Token) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	zero(t.data)

	var firstError error
	if t.locked {
		if err := unix.Munlock(t.data); err != nil {
			firstError = fmt.Errorf("secret: munlock failed: %w", err)
		}
	}
	if err := unix.Munmap(t.data); err != nil && firstError == nil {
		firstError = fmt.Errorf("secret: munmap failed: %w", err)
	}
	t.data = nil
	return firstError
}

func zero(b []byte) {
	for index := range b {
		b[index] = 0
	}
}
