package report

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/nao1215/httpdoom/internal/model"
)

func summaryOf(runID string, results ...*model.ProbeResult) *Summary {
	return &Summary{RunID: runID, Total: len(results) * 2, Results: results}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	stable := &model.ProbeResult{OriginURI: "http://a.example.com", StatusCode: 200, ContentSHA256: "aa"}
	previous := summaryOf("run-1",
		stable,
		&model.ProbeResult{OriginURI: "http://gone.example.com", StatusCode: 200},
		&model.ProbeResult{
			OriginURI:       "https://b.example.com",
			StatusCode:      200,
			Title:           "Old",
			ContentSHA256:   "01",
			ResponseHeaders: http.Header{"Server": []string{"nginx"}},
			Technologies:    []model.Technology{{Name: "Nginx"}},
		},
	)
	current := summaryOf("run-2",
		&model.ProbeResult{OriginURI: "http://new.example.com", StatusCode: 404},
		stable,
		&model.ProbeResult{
			OriginURI:       "https://b.example.com",
			StatusCode:      503,
			Title:           "Old",
			ContentSHA256:   "02",
			ResponseHeaders: http.Header{"Server": []string{"nginx"}},
			Technologies:    []model.Technology{{Name: "PHP"}, {Name: "Nginx"}},
		},
	)

	c := Compare(previous, current)

	if c.Previous.RunID != "run-1" || c.Current.RunID != "run-2" {
		t.Errorf("unexpected run ids %q %q", c.Previous.RunID, c.Current.RunID)
	}
	if c.Previous.Alive != 3 || c.Current.Alive != 3 {
		t.Errorf("expected 3 alive hosts on both sides, got %d and %d", c.Previous.Alive, c.Current.Alive)
	}
	if !slices.Equal(c.NewHosts, []string{"http://new.example.com"}) {
		t.Errorf("unexpected new hosts %v", c.NewHosts)
	}
	if !slices.Equal(c.GoneHosts, []string{"http://gone.example.com"}) {
		t.Errorf("unexpected gone hosts %v", c.GoneHosts)
	}
	if c.UnchangedCount != 1 {
		t.Errorf("expected 1 unchanged host, got %d", c.UnchangedCount)
	}

	want := []Change{
		{URI: "https://b.example.com", Field: FieldStatus, Previous: "200", Current: "503"},
		{URI: "https://b.example.com", Field: FieldContent, Previous: "01", Current: "02"},
		{URI: "https://b.example.com", Field: FieldTechnologies, Previous: "Nginx", Current: "Nginx, PHP"},
	}
	if !slices.Equal(c.Changes, want) {
		t.Errorf("unexpected changes:\n got %+v\nwant %+v", c.Changes, want)
	}
	if c.Identical() {
		t.Error("expected runs to differ")
	}
}

func TestCompareIdentical(t *testing.T) {
	t.Parallel()

	s := createTestSummary()
	c := Compare(s, s)
	if !c.Identical() {
		t.Errorf("expected identical runs, got %+v", c)
	}
	if c.UnchangedCount != s.Alive() {
		t.Errorf("expected %d unchanged hosts, got %d", s.Alive(), c.UnchangedCount)
	}
}

func TestReadSummary(t *testing.T) {
	t.Parallel()

	t.Run("reads persisted results", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		s := createTestSummary()
		if _, err := Persist(dir, s); err != nil {
			t.Fatal(err)
		}

		got, err := ReadSummary(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.RunID != s.RunID || got.Alive() != s.Alive() || len(got.Failures) != len(s.Failures) {
			t.Errorf("round trip mismatch: %+v", got)
		}
	})

	t.Run("missing general.json", func(t *testing.T) {
		t.Parallel()
		_, err := ReadSummary(t.TempDir())
		if !errors.Is(err, ErrNoResults) {
			t.Errorf("expected ErrNoResults, got %v", err)
		}
	})

	t.Run("corrupt general.json", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, GeneralFileName), []byte("{"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadSummary(dir); err == nil {
			t.Error("expected a decode error")
		}
	})
}
