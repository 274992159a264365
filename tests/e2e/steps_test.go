//go:build e2e

package e2e

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saleor-qa/dashboard-e2e/tests/e2e/helpers"
)

// page runs the steps of one scenario against a catalog page. Every step
// fails the test immediately.
type page struct {
	t    *testing.T
	b    *helpers.Browser
	name string
}

// openPage restores the dashboard session and opens the named page.
func openPage(t *testing.T, name string) *page {
	t.Helper()
	return &page{t: t, b: helpers.Open(t, name), name: name}
}

// on continues on another catalog page in the same browser, e.g. the detail
// page a list row navigates to.
func (p *page) on(name string) *page {
	return &page{t: p.t, b: p.b, name: name}
}

func (p *page) click(control string) *page {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.Click(p.b.Ctx, p.name, control))
	return p
}

func (p *page) fill(field, value string) *page {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.Fill(p.b.Ctx, p.name, field, value))
	return p
}

func (p *page) choose(field, option string) *page {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.Choose(p.b.Ctx, p.name, field, option))
	return p
}

func (p *page) check(field string) *page {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.Check(p.b.Ctx, p.name, field))
	return p
}

func (p *page) uncheck(field string) *page {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.Uncheck(p.b.Ctx, p.name, field))
	return p
}

func (p *page) visible(name string) *page {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.Visible(p.b.Ctx, p.name, name))
	return p
}

func (p *page) save() *page {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.Save(p.b.Ctx))
	return p
}

func (p *page) confirm() *page {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.Confirm(p.b.Ctx))
	return p
}

func (p *page) firstRow() *page {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.OpenFirstRow(p.b.Ctx))
	return p
}

func (p *page) expectSuccess(message string) {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.ExpectSuccess(p.b.Ctx, p.name, message))
}

func (p *page) expectError(message string) {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.ExpectError(p.b.Ctx, p.name, message))
}

func (p *page) expectFieldError(message string) {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.ExpectFieldError(p.b.Ctx, message))
}

func (p *page) expectMessage(message string) {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.ExpectMessage(p.b.Ctx, p.name, message))
}

func (p *page) expectText(text string) {
	p.t.Helper()
	require.NoError(p.t, p.b.Dashboard.ExpectText(p.b.Ctx, text))
}

// expectURL waits until the page URL contains the fragment stored under the
// message name.
func (p *page) expectURL(message string) {
	p.t.Helper()
	fragment, err := p.b.Dashboard.Catalog().Message(p.name, message)
	require.NoError(p.t, err)
	require.NoError(p.t, p.b.WaitURLContains(p.b.Ctx, fragment, helpers.Harness(p.t).Config.Timeouts.Command))
}
