package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/httpdoom/internal/model"
)

// ErrNoResults is returned when an output directory holds no general.json.
var ErrNoResults = errors.New("no results found")

// Fields compared between two runs.
const (
	FieldStatus       = "status"
	FieldFinalURI     = "final_uri"
	FieldTitle        = "title"
	FieldContent      = "content_sha256"
	FieldServer       = "server"
	FieldTechnologies = "technologies"
)

// RunMetadata describes one side of a comparison.
type RunMetadata struct {
	Dir     string    `json:"dir"`
	RunID   string    `json:"run_id"`
	Started time.Time `json:"started"`
	Total   int       `json:"total"`
	Alive   int       `json:"alive"`
}

// Change is one field of an alive host that differs between two runs.
type Change struct {
	URI      string `json:"uri"`
	Field    string `json:"field"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// Comparison is the difference between two runs, keyed by origin URI.
type Comparison struct {
	Previous RunMetadata `json:"previous"`
	Current  RunMetadata `json:"current"`

	// NewHosts answered in the current run only.
	NewHosts []string `json:"new_hosts,omitempty"`

	// GoneHosts answered in the previous run only.
	GoneHosts []string `json:"gone_hosts,omitempty"`

	// Changes lists differing fields of hosts alive in both runs.
	Changes []Change `json:"changes,omitempty"`

	// UnchangedCount is the number of hosts alive in both runs without changes.
	UnchangedCount int `json:"unchanged_count"`
}

// Identical reports whether both runs saw the same alive hosts answering
// the same way.
func (c *Comparison) Identical() bool {
	return len(c.NewHosts) == 0 && len(c.GoneHosts) == 0 && len(c.Changes) == 0
}

// ReadSummary loads general.json from an output directory.
func ReadSummary(dir string) (*Summary, error) {
	data, err := os.ReadFile(filepath.Join(dir, GeneralFileName)) //nolint:gosec // operator supplied path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNoResults, dir)
		}
		return nil, err
	}

	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Join(dir, GeneralFileName), err)
	}
	return &s, nil
}

// Compare returns the difference between two runs. Hosts, and changes per
// host, are sorted by origin URI.
func Compare(previous, current *Summary) *Comparison {
	c := &Comparison{
		Previous: newRunMetadata(previous),
		Current:  newRunMetadata(current),
	}

	before := indexResults(previous.Results)
	after := indexResults(current.Results)

	for _, uri := range sortedURIs(after) {
		old, ok := before[uri]
		if !ok {
			c.NewHosts = append(c.NewHosts, uri)
			continue
		}
		changes := diffResult(uri, old, after[uri])
		if len(changes) == 0 {
			c.UnchangedCount++
			continue
		}
		c.Changes = append(c.Changes, changes...)
	}

	for _, uri := range sortedURIs(before) {
		if _, ok := after[uri]; !ok {
			c.GoneHosts = append(c.GoneHosts, uri)
		}
	}

	return c
}

func newRunMetadata(s *Summary) RunMetadata {
	return RunMetadata{
		RunID:   s.RunID,
		Started: s.Started,
		Total:   s.Total,
		Alive:   s.Alive(),
	}
}

func indexResults(results []*model.ProbeResult) map[string]*model.ProbeResult {
	m := make(map[string]*model.ProbeResult, len(results))
	for _, r := range results {
		m[r.OriginURI] = r
	}
	return m
}

func sortedURIs(m map[string]*model.ProbeResult) []string {
	uris := make([]string, 0, len(m))
	for uri := range m {
		uris = append(uris, uri)
	}
	slices.Sort(uris)
	return uris
}

// diffResult compares the fields of one host.
func diffResult(uri string, old, cur *model.ProbeResult) []Change {
	fields := []struct {
		name     string
		previous string
		current  string
	}{
		{FieldStatus, strconv.Itoa(old.StatusCode), strconv.Itoa(cur.StatusCode)},
		{FieldFinalURI, old.FinalURI, cur.FinalURI},
		{FieldTitle, old.Title, cur.Title},
		{FieldContent, old.ContentSHA256, cur.ContentSHA256},
		{FieldServer, old.Header("Server"), cur.Header("Server")},
		{FieldTechnologies, technologyKey(old.Technologies), technologyKey(cur.Technologies)},
	}

	var changes []Change
	for _, f := range fields {
		if f.previous == f.current {
			continue
		}
		changes = append(changes, Change{
			URI:      uri,
			Field:    f.name,
			Previous: f.previous,
			Current:  f.current,
		})
	}
	return changes
}

// technologyKey renders technologies as a sorted, comparable string.
func technologyKey(techs []model.Technology) string {
	names := technologyNames(techs)
	slices.Sort(names)
	return strings.Join(names, ", ")
}
