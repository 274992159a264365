package runner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/saleor-qa/dashboard-e2e/internal/config"
)

// Status is the final outcome of one test across its attempts.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusFlaky   Status = "flaky"
	StatusSkipped Status = "skipped"
)

// TestResult is one top-level test in a run.
type TestResult struct {
	Package  string        `json:"package"`
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
	Output   string        `json:"output,omitempty"`
}

// Report summarizes a suite run.
type Report struct {
	ID          string       `json:"id"`
	Mode        config.Mode  `json:"mode"`
	Areas       []string     `json:"areas,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Tests       []TestResult `json:"tests"`
	BuildErrors []string     `json:"build_errors,omitempty"`
}

// Counts tallies the tests by status.
func (r *Report) Counts() map[Status]int {
	c := map[Status]int{StatusPassed: 0, StatusFailed: 0, StatusFlaky: 0, StatusSkipped: 0}
	for _, t := range r.Tests {
		c[t.Status]++
	}
	return c
}

// Passed reports whether nothing failed. Flaky tests count as passed.
func (r *Report) Passed() bool {
	return len(r.BuildErrors) == 0 && r.Counts()[StatusFailed] == 0
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) sortTests() {
	sort.SliceStable(r.Tests, func(i, j int) bool {
		if r.Tests[i].Package != r.Tests[j].Package {
			return r.Tests[i].Package < r.Tests[j].Package
		}
		return r.Tests[i].Name < r.Tests[j].Name
	})
}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	c := r.Counts()

	result := "PASSED"
	if !r.Passed() {
		result = "FAILED"
	}
	fmt.Fprintf(&b, "# Dashboard E2E run %s\n\n", result)
	fmt.Fprintf(&b, "- Run: `%s`\n", r.ID)
	fmt.Fprintf(&b, "- Mode: %s\n", r.Mode)
	if len(r.Areas) > 0 {
		titles := make([]string, len(r.Areas))
		for i, a := range r.Areas {
			titles[i] = AreaTitle(a)
		}
		fmt.Fprintf(&b, "- Areas: %s\n", strings.Join(titles, ", "))
	}
	fmt.Fprintf(&b, "- Started: %s\n", r.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n\n", r.Duration().Round(time.Second))
	fmt.Fprintf(&b, "**%d passed, %d failed, %d flaky, %d skipped**\n\n",
		c[StatusPassed], c[StatusFailed], c[StatusFlaky], c[StatusSkipped])

	if len(r.Tests) > 0 {
		b.WriteString("| Test | Package | Status | Attempts | Duration |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, t := range r.Tests {
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %s |\n",
				t.Name, t.Package, t.Status, t.Attempts, t.Duration.Round(time.Millisecond))
		}
		b.WriteString("\n")
	}

	for _, t := range r.Tests {
		if t.Status != StatusFailed || t.Output == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n```\n%s\n```\n\n", t.Name, t.Output)
	}

	if len(r.BuildErrors) > 0 {
		b.WriteString("## Build errors\n\n```\n")
		b.WriteString(strings.Join(r.BuildErrors, "\n"))
		b.WriteString("\n```\n")
	}
	return b.String()
}

func reportPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("h1", "h2", "h3", "p", "ul", "ol", "li", "strong", "em", "code", "pre")
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("style").Matching(bluemonday.Paragraph).OnElements("th", "td")
	return p
}

// HTML renders the Markdown report to a standalone sanitized page.
func (r *Report) HTML() (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(r.Markdown()), &body); err != nil {
		return "", errors.Wrap(err, "failed to render report")
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Dashboard E2E report</title></head><body>\n")
	b.WriteString(reportPolicy().Sanitize(body.String()))
	b.WriteString("</body></html>\n")
	return b.String(), nil
}

// WriteXLSX writes one row per test into a spreadsheet.
func (r *Report) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "failed to name sheet")
	}

	header := []interface{}{"Package", "Test", "Status", "Attempts", "Duration (s)"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create style")
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return errors.Wrap(err, "failed to style header")
	}

	for i, t := range r.Tests {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{t.Package, t.Name, string(t.Status), t.Attempts, t.Duration.Seconds()}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+2)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write spreadsheet")
	}
	return nil
}

// Write stores report.json plus one file per format in dir and returns the
// written paths.
func (r *Report) Write(dir string, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", dir)
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", path)
		}
		written = append(written, path)
		return nil
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode report")
	}
	if err := write("report.json", data); err != nil {
		return written, err
	}

	for _, format := range formats {
		switch format {
		case "markdown":
			err = write("report.md", []byte(r.Markdown()))
		case "html":
			var page string
			page, err = r.HTML()
			if err == nil {
				err = write("report.html", []byte(page))
			}
		case "xlsx":
			var buf bytes.Buffer
			err = r.WriteXLSX(&buf)
			if err == nil {
				err = write("report.xlsx", buf.Bytes())
			}
		default:
			err = errors.Errorf("unknown report format %q", format)
		}
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// ReadReport loads a report.json written by Write.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	r := &Report{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return r, nil
}
