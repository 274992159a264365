package runner

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// Event is one line of `go test -json` output.
type Event struct {
	Time        time.Time `json:"Time"`
	Action      string    `json:"Action"`
	Package     string    `json:"Package"`
	ImportPath  string    `json:"ImportPath"`
	Test        string    `json:"Test"`
	Elapsed     float64   `json:"Elapsed"`
	Output      string    `json:"Output"`
	FailedBuild string    `json:"FailedBuild"`
}

const maxOutputLines = 40

type testRun struct {
	pkg     string
	name    string
	action  string
	elapsed time.Duration
	output  []string
}

// attempt holds the outcome of one go test invocation.
type attempt struct {
	tests     map[string]*testRun
	order     []string
	pkgFailed map[string]bool
	build     []string
}

func testID(pkg, name string) string {
	return pkg + "." + name
}

func isTopLevel(name string) bool {
	return name != "" && !strings.Contains(name, "/")
}

// parseEvents reads test2json events. Lines that are not JSON are kept as
// build output.
func parseEvents(r io.Reader) (*attempt, error) {
	a := &attempt{tests: map[string]*testRun{}, pkgFailed: map[string]bool{}}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if line[0] != '{' || json.Unmarshal(line, &ev) != nil {
			a.build = append(a.build, string(line))
			continue
		}
		a.apply(ev)
	}
	return a, sc.Err()
}

func (a *attempt) apply(ev Event) {
	switch ev.Action {
	case "build-output":
		a.build = append(a.build, strings.TrimRight(ev.Output, "\n"))
		return
	case "build-fail":
		return
	}

	if ev.Test == "" {
		if ev.Action == "fail" {
			a.pkgFailed[ev.Package] = true
		}
		return
	}

	// Subtests are folded into their top-level test.
	name := ev.Test
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[:i]
	}
	id := testID(ev.Package, name)
	tr, ok := a.tests[id]
	if !ok {
		tr = &testRun{pkg: ev.Package, name: name}
		a.tests[id] = tr
		a.order = append(a.order, id)
	}

	switch ev.Action {
	case "output":
		tr.output = append(tr.output, strings.TrimRight(ev.Output, "\n"))
		if len(tr.output) > maxOutputLines {
			tr.output = tr.output[len(tr.output)-maxOutputLines:]
		}
	case "pass", "fail", "skip":
		if isTopLevel(ev.Test) {
			tr.action = ev.Action
			tr.elapsed = time.Duration(ev.Elapsed * float64(time.Second))
		}
	}
}

// failed returns the top-level tests that did not pass or skip, including
// tests still running when the package died.
func (a *attempt) failed() []*testRun {
	var out []*testRun
	for _, id := range a.order {
		tr := a.tests[id]
		if tr.action == "pass" || tr.action == "skip" {
			continue
		}
		out = append(out, tr)
	}
	return out
}

// brokenPackages lists packages that failed without any failing test, such
// as build errors or a panic in TestMain.
func (a *attempt) brokenPackages() []string {
	var out []string
	for pkg := range a.pkgFailed {
		found := false
		for _, tr := range a.tests {
			if tr.pkg == pkg && tr.action != "pass" && tr.action != "skip" {
				found = true
				break
			}
		}
		if !found {
			out = append(out, pkg)
		}
	}
	return out
}
