package fingerprint

import (
	"context"
	"log/slog"
	"slices"

	"github.com/nao1215/httpdoom/internal/model"
	"github.com/nao1215/httpdoom/internal/rules"
)

// RuleSource provides a compiled RuleSet. *rules.Loader implements it.
type RuleSource interface {
	Load(ctx context.Context) (*rules.RuleSet, error)
}

// Matcher detects technologies on probe results using rules from a RuleSource.
// It is safe for concurrent use when its RuleSource is.
type Matcher struct {
	source RuleSource
	logger *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// NewMatcher creates a Matcher backed by source.
func NewMatcher(source RuleSource, opts ...Option) *Matcher {
	m := &Matcher{source: source}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Detect loads the rules (once, through the source) and returns the
// technologies detected on result, sorted by name. A rule loading failure is
// returned as is so the caller can record it; it wraps rules.ErrRuleFetch.
func (m *Matcher) Detect(ctx context.Context, result *model.ProbeResult) ([]model.Technology, error) {
	rs, err := m.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	res := Match(rs, result)
	m.logger.Debug("technology detection finished",
		"target", result.FinalURI,
		"detected", len(res.Vendors),
	)
	return Technologies(rs, res), nil
}

// Technologies converts a Result into report records, sorted by name.
func Technologies(rs *rules.RuleSet, res Result) []model.Technology {
	techs := make([]model.Technology, 0, len(res.Vendors))
	for _, name := range res.Names() {
		det := res.Detections[name]
		tech := model.Technology{
			Name:       name,
			Version:    det.Version,
			Confidence: det.Confidence,
			Implied:    det.Implied,
		}
		if rs != nil {
			if rule, ok := rs.Get(name); ok {
				tech.Categories = slices.Clone(rule.Categories)
				tech.Website = rule.Website
				tech.OpenSource = rule.OpenSource
			}
		}
		techs = append(techs, tech)
	}
	return techs
}
