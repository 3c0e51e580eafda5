package model

import "fmt"

// WarningKind classifies a sub-operation failure recorded on a ProbeResult.
type WarningKind string

// Warning kinds.
const (
	// WarningDNS is recorded when address resolution fails.
	WarningDNS WarningKind = "dns"

	// WarningRules is recorded when the rule document cannot be loaded.
	WarningRules WarningKind = "rule_fetch"

	// WarningScreenshot is recorded when a screenshot cannot be captured.
	WarningScreenshot WarningKind = "screenshot"
)

// Warning is a non-fatal failure of one optional probe step.
type Warning struct {
	// Step is the name of the pipeline step that failed.
	Step string `json:"step"`

	// Kind classifies the failure.
	Kind WarningKind `json:"kind"`

	// Message is the error text.
	Message string `json:"message"`
}

// NewWarning builds a Warning from an error.
func NewWarning(step string, kind WarningKind, err error) Warning {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Warning{Step: step, Kind: kind, Message: msg}
}

// String implements fmt.Stringer.
func (w Warning) String() string {
	return fmt.Sprintf("%s (%s): %s", w.Step, w.Kind, w.Message)
}
