package wordlist

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const sampleList = `# targets
example.com
https://example.com/
www.example.com

not-a-host
api.example.org:8443
`

func TestLoaderParse(t *testing.T) {
	t.Parallel()

	var rejected []error
	l := NewLoader(WithOnError(func(err error) {
		rejected = append(rejected, err)
	}))

	hosts, err := l.Parse(strings.NewReader(sampleList))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"example.com", "www.example.com", "api.example.org"}
	if !slices.Equal(hosts, want) {
		t.Errorf("got %v, want %v", hosts, want)
	}
	if len(rejected) != 1 || !errors.Is(rejected[0], ErrInvalidHost) {
		t.Errorf("expected one rejected line, got %v", rejected)
	}
}

func TestLoaderLoad(t *testing.T) {
	t.Parallel()

	t.Run("from file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "hosts.txt")
		if err := os.WriteFile(path, []byte(sampleList), 0o600); err != nil {
			t.Fatal(err)
		}

		hosts, err := NewLoader().Load(context.Background(), path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hosts) != 3 {
			t.Errorf("expected 3 hosts, got %v", hosts)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("empty list", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "empty.txt")
		if err := os.WriteFile(path, []byte("# nothing\n\nlocalhost\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		_, err := NewLoader().Load(context.Background(), path)
		if !errors.Is(err, ErrEmpty) {
			t.Errorf("expected ErrEmpty, got %v", err)
		}
	})

	t.Run("from url", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(sampleList))
		}))
		defer srv.Close()

		hosts, err := NewLoader(WithHTTPClient(srv.Client())).Load(context.Background(), srv.URL+"/list.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hosts) != 3 {
			t.Errorf("expected 3 hosts, got %v", hosts)
		}
	})

	t.Run("url error status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewLoader().Load(context.Background(), srv.URL)
		if !errors.Is(err, ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})
}
