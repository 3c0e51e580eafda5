package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

func TestComputeDigest(t *testing.T) {
	t.Parallel()

	t.Run("same body yields same digest", func(t *testing.T) {
		t.Parallel()

		a := ComputeDigest([]byte("<html><body>hello</body></html>"))
		b := ComputeDigest([]byte("<html><body>hello</body></html>"))
		if a != b {
			t.Errorf("digests differ: %s vs %s", a, b)
		}
		if len(a) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(a))
		}
	})

	t.Run("hashes the body bytes", func(t *testing.T) {
		t.Parallel()

		sum := sha256.Sum256([]byte{'c', 'a', 'f', 0xe9})
		want := hex.EncodeToString(sum[:])
		if got := ComputeDigest([]byte("caf\xe9")); got != want {
			t.Errorf("ComputeDigest(caf\\xe9) = %s, want %s", got, want)
		}
	})

	t.Run("distinct bodies yield distinct digests", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			a, b string
		}{
			{"ascii", "a", "b"},
			{"japanese and chinese titles", "<title>日本</title>", "<title>中国</title>"},
			{"cyrillic and greek", "Привет", "Γειά σου"},
			{"invalid utf-8 bytes", "\xff", "\xfe"},
			{"latin1 byte and its utf-8 form", "\xe9", "é"},
		}
		for _, tt := range tests {
			if ComputeDigest([]byte(tt.a)) == ComputeDigest([]byte(tt.b)) {
				t.Errorf("%s: expected different digests for %q and %q", tt.name, tt.a, tt.b)
			}
		}
	})
}

func TestIsSuccessStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want bool
	}{
		{199, false},
		{200, true},
		{204, true},
		{299, true},
		{301, false},
		{404, false},
		{500, false},
	}
	for _, tt := range tests {
		if got := IsSuccessStatus(tt.code); got != tt.want {
			t.Errorf("IsSuccessStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestNewWarning(t *testing.T) {
	t.Parallel()

	w := NewWarning("resolve", WarningDNS, errors.New("no such host"))
	if w.Step != "resolve" || w.Kind != WarningDNS || w.Message != "no such host" {
		t.Errorf("unexpected warning: %+v", w)
	}
	if got := w.String(); got != "resolve (dns): no such host" {
		t.Errorf("String() = %q", got)
	}

	empty := NewWarning("detect", WarningRules, nil)
	if empty.Message != "" {
		t.Errorf("expected empty message, got %q", empty.Message)
	}
}
