package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries as Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeStatusChart(md, summary)
	w.writeResults(md, summary)
	w.writeTechnologies(md, summary)
	w.writeFailures(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("HttpDoom Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + s.RunID + "`"},
			{"Started", s.Started.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
			{"Targets", strconv.Itoa(s.Total)},
			{"Alive", strconv.Itoa(s.Alive())},
			{"Dead", strconv.Itoa(len(s.Failures))},
		},
	})
	md.PlainText("")

	if s.Alive() == 0 {
		md.Warningf("All tested hosts are dead.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeStatusChart(md *markdown.Markdown, s *Summary) {
	counts := s.StatusCounts()
	if len(counts) == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Status Code Distribution"),
		piechart.WithShowData(true),
	)
	for _, class := range sortedKeys(counts) {
		chart.LabelAndIntValue(class, uint64(counts[class])) //nolint:gosec // counts are non-negative
	}

	md.H2("Status Codes")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown, s *Summary) {
	md.H2("Alive Hosts")
	md.PlainText("")

	if s.Alive() == 0 {
		md.PlainText("No host answered.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(s.Results))
	for _, r := range s.Results {
		title := r.Title
		if title == "" {
			title = "-"
		}
		server := r.Header("Server")
		if server == "" {
			server = "-"
		}
		techs := "-"
		if names := technologyNames(r.Technologies); len(names) > 0 {
			techs = strings.Join(names, ", ")
		}
		rows = append(rows, []string{
			r.OriginURI,
			strconv.Itoa(r.StatusCode),
			truncateString(title, 50),
			server,
			truncateString(techs, 60),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URI", "Status", "Title", "Server", "Technologies"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, r := range s.Results {
		if !r.HasWarnings() {
			continue
		}
		lines := make([]string, 0, len(r.Warnings))
		for _, warn := range r.Warnings {
			lines = append(lines, warn.String())
		}
		md.Details(r.OriginURI+" warnings", strings.Join(lines, "\n"))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeTechnologies(md *markdown.Markdown, s *Summary) {
	counts := s.Technologies()
	if len(counts) == 0 {
		return
	}

	md.H2("Technologies")
	md.PlainText("")

	rows := make([][]string, 0, len(counts))
	for _, name := range sortedKeys(counts) {
		rows = append(rows, []string{name, strconv.Itoa(counts[name])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Technology", "Hosts"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, s *Summary) {
	if len(s.Failures) == 0 {
		return
	}

	md.H2("Dead Hosts")
	md.PlainText("")

	counts := s.FailureCounts()
	rows := make([][]string, 0, len(counts))
	for _, kind := range sortedKeys(counts) {
		rows = append(rows, []string{kind, strconv.Itoa(counts[kind])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Failure", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	urls := make([]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		urls = append(urls, f.URL+" ("+f.Kind+")")
	}
	md.Details("Failed targets", strings.Join(urls, "\n"))
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [httpdoom](https://github.com/nao1215/httpdoom)*")
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return strings.ToValidUTF8(s[:maxLen-3], "") + "..."
}
