package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nao1215/httpdoom/internal/model"
	"github.com/nao1215/httpdoom/internal/pipeline"
)

// Artifact file names inside the output directory.
const (
	GeneralFileName  = "general.json"
	SummaryFileName  = "summary.md"
	IndividualDir    = "individual"
	individualSuffix = ".json"
)

// Artifacts lists the files written by Persist.
type Artifacts struct {
	General    string
	Summary    string
	Individual []string
}

// Persist writes general.json, summary.md and one individual JSON file per
// alive host into dir, named after the host's final URI. A summary without results writes nothing and returns
// pipeline.ErrAllTargetsUnreachable.
func Persist(dir string, summary *Summary) (*Artifacts, error) {
	if summary.Alive() == 0 {
		return nil, pipeline.ErrAllTargetsUnreachable
	}

	individualDir := filepath.Join(dir, IndividualDir)
	if err := os.MkdirAll(individualDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	art := &Artifacts{
		General:    filepath.Join(dir, GeneralFileName),
		Summary:    filepath.Join(dir, SummaryFileName),
		Individual: make([]string, 0, len(summary.Results)),
	}

	var general bytes.Buffer
	if _, err := NewJSONWriter(&general, WithPrettyPrint()).Write(summary); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", GeneralFileName, err)
	}
	if err := os.WriteFile(art.General, general.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", GeneralFileName, err)
	}

	var md bytes.Buffer
	if _, err := NewMarkdownWriter(&md).Write(summary); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", SummaryFileName, err)
	}
	if err := os.WriteFile(art.Summary, md.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", SummaryFileName, err)
	}

	names := newNameSet()
	for _, r := range summary.Results {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode result for %s: %w", r.OriginURI, err)
		}
		path := filepath.Join(individualDir, names.claim(SanitizeFileName(resultURI(r)))+individualSuffix)
		if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
			return nil, fmt.Errorf("failed to write result for %s: %w", r.OriginURI, err)
		}
		art.Individual = append(art.Individual, path)
	}

	return art, nil
}

// resultURI is the URI an individual file is named after: the final URI,
// or the origin when the result has none.
func resultURI(r *model.ProbeResult) string {
	if r.FinalURI != "" {
		return r.FinalURI
	}
	return r.OriginURI
}

// SanitizeFileName turns a URI into a file name: the scheme marker is
// stripped, ':' becomes '+', and characters that are invalid in file names
// on common filesystems are dropped.
func SanitizeFileName(uri string) string {
	if i := strings.Index(uri, "://"); i >= 0 {
		uri = uri[i+3:]
	}

	var sb strings.Builder
	for _, r := range uri {
		switch {
		case r == ':':
			sb.WriteRune('+')
		case r < 0x20, r == 0x7f:
		case strings.ContainsRune(`<>"/\|?*`, r):
		default:
			sb.WriteRune(r)
		}
	}

	name := strings.Trim(sb.String(), ". ")
	if name == "" {
		return "result"
	}
	return name
}

// nameSet hands out unique names by suffixing -2, -3 on collision.
type nameSet struct {
	used map[string]struct{}
}

func newNameSet() *nameSet {
	return &nameSet{used: make(map[string]struct{})}
}

func (n *nameSet) claim(name string) string {
	candidate := name
	for i := 2; ; i++ {
		if _, ok := n.used[candidate]; !ok {
			n.used[candidate] = struct{}{}
			return candidate
		}
		candidate = name + "-" + strconv.Itoa(i)
	}
}
