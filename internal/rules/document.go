package rules

import (
	"encoding/json"
	"fmt"
)

// Document is the decoded technologies.json file.
type Document struct {
	// Categories maps a decimal category id to its definition.
	Categories map[string]CategoryDef `json:"categories"`

	// Technologies maps a vendor name to its rule definition.
	Technologies map[string]Technology `json:"technologies"`
}

// CategoryDef is one entry of the category map.
type CategoryDef struct {
	Name     string `json:"name"`
	Priority int    `json:"priority,omitempty"`
}

// Technology is the raw, uncompiled rule of a single vendor.
type Technology struct {
	Cats        []int             `json:"cats"`
	Description string            `json:"description,omitempty"`
	Website     string            `json:"website,omitempty"`
	OSS         bool              `json:"oss,omitempty"`
	Implies     StringList        `json:"implies,omitempty"`
	HTML        StringList        `json:"html,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Cookies     map[string]string `json:"cookies,omitempty"`
	JS          map[string]string `json:"js,omitempty"`
}

// StringList is a JSON field that may hold one string or an array of strings.
type StringList []string

// UnmarshalJSON accepts a string, an array of strings or null.
func (s *StringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	*s = many
	return nil
}

// ParseDocument decodes a technologies.json payload.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid rule document: %w", ErrRuleFetch, err)
	}
	if doc.Technologies == nil {
		return nil, fmt.Errorf("%w: rule document has no technologies", ErrRuleFetch)
	}
	if doc.Categories == nil {
		doc.Categories = make(map[string]CategoryDef)
	}
	return &doc, nil
}
