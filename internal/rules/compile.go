package rules

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/httpdoom/internal/model"
)

// HeaderMatcher matches one response header.
type HeaderMatcher struct {
	// Name is the lower-cased header name.
	Name    string
	Pattern *Pattern
}

// CookieMatcher matches one cookie by name.
type CookieMatcher struct {
	Name    string
	Pattern *Pattern
}

// JSMatcher matches a JavaScript global. Evaluating it requires a script
// runtime, so the fingerprint matcher never reports JS matches.
type JSMatcher struct {
	Property string
	Pattern  *Pattern
}

// Rule is the compiled fingerprint of one vendor.
type Rule struct {
	Vendor          string
	Description     string
	Website         string
	OpenSource      bool
	Categories      []model.Category
	Implies         []string
	HeaderMatchers  []HeaderMatcher
	CookieMatchers  []CookieMatcher
	ContentMatchers []*Pattern
	JSMatchers      []JSMatcher
}

// CompileStats summarizes what Compile dropped.
type CompileStats struct {
	// Rules is the number of compiled vendor rules.
	Rules int

	// InvalidPatterns counts patterns skipped because they failed to compile.
	InvalidPatterns int

	// MissingCategories counts category ids with no entry in the category map.
	MissingCategories int
}

// RuleSet is an immutable set of compiled rules indexed by vendor.
// It is safe for concurrent use.
type RuleSet struct {
	rules   map[string]*Rule
	vendors []string
	stats   CompileStats
}

// CompileOption configures Compile.
type CompileOption func(*compiler)

type compiler struct {
	logger *slog.Logger
}

// WithCompileLogger logs every dropped pattern and category at debug level.
func WithCompileLogger(logger *slog.Logger) CompileOption {
	return func(c *compiler) {
		c.logger = logger
	}
}

// Compile turns a rule document into a RuleSet.
func Compile(doc *Document, opts ...CompileOption) (*RuleSet, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	c := &compiler{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}

	rs := &RuleSet{
		rules:   make(map[string]*Rule, len(doc.Technologies)),
		vendors: make([]string, 0, len(doc.Technologies)),
	}

	for vendor, tech := range doc.Technologies {
		rs.rules[vendor] = c.compileRule(vendor, tech, doc.Categories, &rs.stats)
		rs.vendors = append(rs.vendors, vendor)
	}
	slices.Sort(rs.vendors)
	rs.stats.Rules = len(rs.rules)

	return rs, nil
}

func (c *compiler) compileRule(vendor string, tech Technology, categories map[string]CategoryDef, stats *CompileStats) *Rule {
	rule := &Rule{
		Vendor:      vendor,
		Description: tech.Description,
		Website:     tech.Website,
		OpenSource:  tech.OSS,
		Categories:  make([]model.Category, 0, len(tech.Cats)),
		Implies:     make([]string, 0, len(tech.Implies)),
	}

	for _, id := range tech.Cats {
		def, ok := categories[strconv.Itoa(id)]
		if !ok {
			stats.MissingCategories++
			c.logger.Debug("dropping unknown category", "vendor", vendor, "category", id)
			continue
		}
		rule.Categories = append(rule.Categories, model.Category{ID: id, Name: def.Name})
	}

	for _, implied := range tech.Implies {
		// Implies entries may carry directives, e.g. "PHP\;confidence:50".
		name, _, _ := strings.Cut(implied, directiveSeparator)
		if name = strings.TrimSpace(name); name != "" {
			rule.Implies = append(rule.Implies, name)
		}
	}

	parse := func(kind, raw string) *Pattern {
		p, err := ParsePattern(raw)
		if err != nil {
			stats.InvalidPatterns++
			c.logger.Debug("skipping invalid pattern", "vendor", vendor, "kind", kind, "error", err)
			return nil
		}
		return p
	}

	for _, name := range sortedKeys(tech.Headers) {
		if p := parse("headers", tech.Headers[name]); p != nil {
			rule.HeaderMatchers = append(rule.HeaderMatchers, HeaderMatcher{Name: strings.ToLower(name), Pattern: p})
		}
	}
	for _, name := range sortedKeys(tech.Cookies) {
		if p := parse("cookies", tech.Cookies[name]); p != nil {
			rule.CookieMatchers = append(rule.CookieMatchers, CookieMatcher{Name: name, Pattern: p})
		}
	}
	for _, raw := range tech.HTML {
		if p := parse("html", raw); p != nil {
			rule.ContentMatchers = append(rule.ContentMatchers, p)
		}
	}
	for _, prop := range sortedKeys(tech.JS) {
		if p := parse("js", tech.JS[prop]); p != nil {
			rule.JSMatchers = append(rule.JSMatchers, JSMatcher{Property: prop, Pattern: p})
		}
	}

	return rule
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Get returns the rule of vendor, if any.
func (rs *RuleSet) Get(vendor string) (*Rule, bool) {
	r, ok := rs.rules[vendor]
	return r, ok
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Vendors returns all vendor names in sorted order.
func (rs *RuleSet) Vendors() []string {
	return slices.Clone(rs.vendors)
}

// All calls fn for every rule in vendor order until fn returns false.
func (rs *RuleSet) All(fn func(*Rule) bool) {
	for _, v := range rs.vendors {
		if !fn(rs.rules[v]) {
			return
		}
	}
}

// Stats returns what was dropped during compilation.
func (rs *RuleSet) Stats() CompileStats {
	return rs.stats
}
