// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewTokenZerosSource(t *testing.T) {
	source := []byte("  tok_live_123\n")
	token, err := NewToken(source)
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	defer token.Close()

	if got := token.Reveal(); got != "tok_live_123" {
		t.Errorf("Reveal = %q", got)
	}
	if token.Len() != len("tok_live_123") {
		t.Errorf("Len = %d", token.Len())
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d not zeroed", index)
		}
	}
}

func TestNewTokenEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := NewToken([]byte(input)); !errors.Is(err, ErrEmpty) {
			t.Errorf("NewToken(%q): %v, want ErrEmpty", input, err)
		}
	}
}

func TestTokenIsRedacted(t *testing.T) {
	token, err := NewTokenFromString("tok_live_123")
	if err != nil {
		t.Fatalf("NewTokenFromString: %v", err)
	}
	defer token.Close()

	if formatted := fmt.Sprintf("%v %s", token, token); strings.Contains(formatted, "tok_live") {
		t.Errorf("format leaked the token: %q", formatted)
	}

	var output bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&output, nil))
	logger.Info("connecting", "token", token)
	if strings.Contains(output.String(), "tok_live") {
		t.Errorf("log leaked the token: %q", output.String())
	}
	if !strings.Contains(output.String(), redacted) {
		t.Errorf("log missing redaction marker: %q", output.String())
	}
}

func TestCloseIsIdempotentAndFinal(t *testing.T) {
	token, err := NewTokenFromString("abc")
	if err != nil {
		t.Fatalf("NewTokenFromString: %v", err)
	}
	if err := token.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := token.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("Reveal after Close did not panic")
		}
	}()
	token.Reveal()
}

func TestNilToken(t *testing.T) {
	var token *Token
	if token.Reveal() != "" || token.Len() != 0 || token.Locked() {
		t.Error("nil token is not empty")
	}
	if err := token.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}

func TestReadToken(t *testing.T) {
	directory := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{"plain", "tok_a", "tok_a", nil},
		{"trailing newline", "tok_b\n", "tok_b", nil},
		{"surrounding space", "  tok_c  \n", "tok_c", nil},
		{"whitespace only", " \n\t", "", ErrEmpty},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(directory, strings.ReplaceAll(test.name, " ", "_"))
			if err := os.WriteFile(path, []byte(test.content), 0600); err != nil {
				t.Fatalf("writing token file: %v", err)
			}
			token, err := ReadToken(path)
			if test.wantErr != nil {
				if !errors.Is(err, test.wantErr) {
					t.Fatalf("ReadToken: %v, want %v", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadToken: %v", err)
			}
			defer token.Close()
			if token.Reveal() != test.want {
				t.Errorf("Reveal = %q, want %q", token.Reveal(), test.want)
			}
		})
	}

	if _, err := ReadToken(filepath.Join(directory, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v, want not-exist", err)
	}
}
