package probe

import (
	"strings"
	"testing"
)

func TestExtractTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"simple", "<html><head><title>Home</title></head></html>", "Home"},
		{"whitespace collapsed", "<title>\n  My   Site \n</title>", "My Site"},
		{"upper case tag", "<TITLE>Shout</TITLE>", "Shout"},
		{"no title", "<html><body>none</body></html>", ""},
		{"empty title", "<title></title>", ""},
		{"not html", `{"json": true}`, ""},
		{"first title wins", "<title>One</title><title>Two</title>", "One"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := extractTitle(tt.content); got != tt.want {
				t.Errorf("extractTitle() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("long title truncated", func(t *testing.T) {
		t.Parallel()
		long := "<title>" + strings.Repeat("a", 2*maxTitleLength) + "</title>"
		if got := extractTitle(long); len(got) != maxTitleLength {
			t.Errorf("expected %d chars, got %d", maxTitleLength, len(got))
		}
	})
}
