// Package dashboard drives Saleor dashboard pages through named selectors and
// messages kept in a YAML catalog.
package dashboard

import (
	_ "embed"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrUnknownEntry is returned for a page, control, field or message name that
// is not in the catalog.
var ErrUnknownEntry = errors.New("unknown catalog entry")

// Common holds selectors shared by every page.
type Common struct {
	Save         string `yaml:"save"`
	Back         string `yaml:"back"`
	Delete       string `yaml:"delete"`
	Confirm      string `yaml:"confirm"`
	SuccessToast string `yaml:"success_toast"`
	ErrorAlert   string `yaml:"error_alert"`
	FieldError   string `yaml:"field_error"`
	Heading      string `yaml:"heading"`
	FirstRow     string `yaml:"first_row"`
}

// Page describes one dashboard area.
type Page struct {
	Route    string            `yaml:"route"`
	Heading  string            `yaml:"heading,omitempty"`
	Controls map[string]string `yaml:"controls,omitempty"`
	Fields   map[string]string `yaml:"fields,omitempty"`
	Messages map[string]string `yaml:"messages,omitempty"`
}

// Catalog is the full set of selectors and expected messages.
type Catalog struct {
	Common   Common            `yaml:"common"`
	Messages map[string]string `yaml:"messages"`
	Pages    map[string]*Page  `yaml:"pages"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return parseCatalog(defaultCatalog)
}

// LoadCatalog returns the embedded catalog with the file at path merged on
// top. An empty path returns the embedded catalog unchanged.
func LoadCatalog(path string) (*Catalog, error) {
	c, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %s", path)
	}
	override, err := parseCatalog(data)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}
	c.merge(override)
	return c, nil
}

func parseCatalog(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse catalog")
	}
	if c.Messages == nil {
		c.Messages = map[string]string{}
	}
	if c.Pages == nil {
		c.Pages = map[string]*Page{}
	}
	return c, nil
}

// merge overlays every non-empty value of o onto c.
func (c *Catalog) merge(o *Catalog) {
	setIf(&c.Common.Save, o.Common.Save)
	setIf(&c.Common.Back, o.Common.Back)
	setIf(&c.Common.Delete, o.Common.Delete)
	setIf(&c.Common.Confirm, o.Common.Confirm)
	setIf(&c.Common.SuccessToast, o.Common.SuccessToast)
	setIf(&c.Common.ErrorAlert, o.Common.ErrorAlert)
	setIf(&c.Common.FieldError, o.Common.FieldError)
	setIf(&c.Common.Heading, o.Common.Heading)
	setIf(&c.Common.FirstRow, o.Common.FirstRow)

	mergeMap(&c.Messages, o.Messages)
	for name, op := range o.Pages {
		if op == nil {
			continue
		}
		p, ok := c.Pages[name]
		if !ok {
			c.Pages[name] = op
			continue
		}
		setIf(&p.Route, op.Route)
		setIf(&p.Heading, op.Heading)
		mergeMap(&p.Controls, op.Controls)
		mergeMap(&p.Fields, op.Fields)
		mergeMap(&p.Messages, op.Messages)
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeMap(dst *map[string]string, src map[string]string) {
	if len(src) == 0 {
		return
	}
	if *dst == nil {
		*dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		(*dst)[k] = v
	}
}

// PageNames lists the catalog pages in order.
func (c *Catalog) PageNames() []string {
	names := make([]string, 0, len(c.Pages))
	for n := range c.Pages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Page returns the named page.
func (c *Catalog) Page(name string) (*Page, error) {
	p, ok := c.Pages[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEntry, "page %q", name)
	}
	return p, nil
}

func (c *Catalog) lookup(page, kind, name string) (string, error) {
	p, err := c.Page(page)
	if err != nil {
		return "", err
	}
	var m map[string]string
	switch kind {
	case "control":
		m = p.Controls
	case "field":
		m = p.Fields
	case "message":
		m = p.Messages
	}
	if v, ok := m[name]; ok {
		return v, nil
	}
	if kind == "message" {
		if v, ok := c.Messages[name]; ok {
			return v, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownEntry, "%s %q on page %q", kind, name, page)
}

// Control returns the selector of a button or link on page.
func (c *Catalog) Control(page, name string) (string, error) {
	return c.lookup(page, "control", name)
}

// Field returns the selector of an input on page.
func (c *Catalog) Field(page, name string) (string, error) {
	return c.lookup(page, "field", name)
}

// Message returns an expected message of page, falling back to the shared
// messages.
func (c *Catalog) Message(page, name string) (string, error) {
	return c.lookup(page, "message", name)
}
