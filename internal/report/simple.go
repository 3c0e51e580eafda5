package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// SimpleWriter outputs a human-readable batch summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// verbose lists every dead target instead of only the counts.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists dead targets individually.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeResults(&sb, summary)
	w.writeFailures(&sb, summary)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          HTTPDOOM REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:   %s\n", s.RunID)
	fmt.Fprintf(sb, "Started:  %s\n", s.Started.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Elapsed:  %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(sb, "Targets:  %d\n", s.Total)
	fmt.Fprintf(sb, "Alive:    %d\n", s.Alive())
	fmt.Fprintf(sb, "Dead:     %d\n", len(s.Failures))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeResults(sb *strings.Builder, s *Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ALIVE HOSTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if s.Alive() == 0 {
		sb.WriteString("  All tested hosts are dead\n\n")
		return
	}

	for _, r := range s.Results {
		fmt.Fprintf(sb, "  [+] %s (%d)\n", r.OriginURI, r.StatusCode)
		if r.FinalURI != "" && r.FinalURI != r.OriginURI {
			fmt.Fprintf(sb, "      Final:        %s\n", r.FinalURI)
		}
		if r.Title != "" {
			fmt.Fprintf(sb, "      Title:        %s\n", r.Title)
		}
		if server := r.Header("Server"); server != "" {
			fmt.Fprintf(sb, "      Server:       %s\n", server)
		}
		if len(r.ResolvedAddresses) > 0 {
			fmt.Fprintf(sb, "      Addresses:    %s\n", strings.Join(r.ResolvedAddresses, ", "))
		}
		if names := technologyNames(r.Technologies); len(names) > 0 {
			fmt.Fprintf(sb, "      Technologies: %s\n", strings.Join(names, ", "))
		}
		if r.ScreenshotPath != "" {
			fmt.Fprintf(sb, "      Screenshot:   %s\n", r.ScreenshotPath)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(sb, "      Warning:      %s\n", warn.String())
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFailures(sb *strings.Builder, s *Summary) {
	if len(s.Failures) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("DEAD HOSTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	counts := s.FailureCounts()
	for _, kind := range sortedKeys(counts) {
		fmt.Fprintf(sb, "  %-10s %d\n", kind+":", counts[kind])
	}
	sb.WriteString("\n")

	if !w.verbose {
		return
	}
	for _, f := range s.Failures {
		fmt.Fprintf(sb, "  [-] %s: %s\n", f.URL, f.Message)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
