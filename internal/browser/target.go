package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
	"k8s.io/klog/v2"

	"github.com/saleor-qa/dashboard-e2e/internal/session"
)

// restoredMarker is set in sessionStorage once seeded storage has been applied
// to a tab, so reloads keep whatever the application wrote since.
const restoredMarker = "__dashboard_e2e_restored__"

// Clear replaces the browser context with a fresh one. Cookies, web storage
// and init scripts from an earlier restore are all dropped.
func (s *Session) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Browser == nil {
		return errors.New("browser not launched")
	}
	if s.Page != nil {
		s.Page.Close()
	}
	if s.Context != nil {
		s.Context.Close()
	}
	s.Page, s.Context = nil, nil
	return s.newContext()
}

// Capture snapshots cookies and localStorage of every origin the context
// visited, plus sessionStorage of the current page.
func (s *Session) Capture(ctx context.Context) (*session.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "storage-state-*.json")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage-state file")
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if _, err := s.Context.StorageState(tmp.Name()); err != nil {
		return nil, errors.Wrap(err, "failed to read storage state")
	}
	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read storage-state file")
	}
	state, err := session.Unmarshal(data)
	if err != nil {
		return nil, err
	}

	if origin, entries, err := s.sessionStorage(); err != nil {
		klog.V(2).Infof("[browser] sessionStorage not captured: %v", err)
	} else if len(entries) > 0 {
		mergeSessionStorage(state, origin, entries)
	}
	return state, nil
}

func (s *Session) sessionStorage() (string, []session.Entry, error) {
	if !strings.HasPrefix(s.Page.URL(), "http") {
		return "", nil, nil
	}
	raw, err := s.Page.Evaluate(fmt.Sprintf(`JSON.stringify({
  origin: window.location.origin,
  items: Object.entries(Object.assign({}, window.sessionStorage)).filter(([k]) => k !== %q)
})`, restoredMarker))
	if err != nil {
		return "", nil, err
	}
	text, ok := raw.(string)
	if !ok {
		return "", nil, errors.Errorf("unexpected sessionStorage result %T", raw)
	}
	return parseSessionStorage(text)
}

func parseSessionStorage(text string) (string, []session.Entry, error) {
	var doc struct {
		Origin string      `json:"origin"`
		Items  [][2]string `json:"items"`
	}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return "", nil, errors.Wrap(err, "failed to decode sessionStorage")
	}
	entries := make([]session.Entry, 0, len(doc.Items))
	for _, item := range doc.Items {
		entries = append(entries, session.Entry{Name: item[0], Value: item[1]})
	}
	return doc.Origin, entries, nil
}

func mergeSessionStorage(state *session.State, origin string, entries []session.Entry) {
	for i := range state.Origins {
		if state.Origins[i].Origin == origin {
			state.Origins[i].SessionStorage = entries
			return
		}
	}
	state.Origins = append(state.Origins, session.Origin{
		Origin:         origin,
		LocalStorage:   []session.Entry{},
		SessionStorage: entries,
	})
}

// Restore loads cookies into the context and seeds web storage through an
// init script that runs before any page script of a matching origin.
func (s *Session) Restore(ctx context.Context, state *session.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state == nil {
		return errors.New("nothing to restore")
	}

	if cookies := toPlaywrightCookies(state.Cookies); len(cookies) > 0 {
		if err := s.Context.AddCookies(cookies); err != nil {
			return errors.Wrap(err, "failed to add cookies")
		}
	}

	script, ok, err := storageScript(state)
	if err != nil {
		return err
	}
	if ok {
		if err := s.Context.AddInitScript(playwright.Script{Content: playwright.String(script)}); err != nil {
			return errors.Wrap(err, "failed to install storage init script")
		}
	}
	klog.V(2).Infof("[browser] restored %d cookies, %d origins", len(state.Cookies), len(state.Origins))
	return nil
}

func toPlaywrightCookies(cookies []session.Cookie) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		oc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(path),
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
			SameSite: sameSite(c.SameSite),
		}
		// Playwright stores session cookies with expires -1.
		if c.Expires > 0 {
			oc.Expires = playwright.Float(c.Expires)
		}
		out = append(out, oc)
	}
	return out
}

func sameSite(v string) *playwright.SameSiteAttribute {
	switch strings.ToLower(v) {
	case "strict":
		return playwright.SameSiteAttributeStrict
	case "lax":
		return playwright.SameSiteAttributeLax
	case "none":
		return playwright.SameSiteAttributeNone
	default:
		return nil
	}
}

type storageSeed struct {
	Local   [][2]string `json:"local"`
	Session [][2]string `json:"session"`
}

// storageScript renders the init script seeding localStorage and
// sessionStorage per origin. ok is false when there is nothing to seed.
func storageScript(state *session.State) (script string, ok bool, err error) {
	seeds := make(map[string]storageSeed)
	for _, o := range state.Origins {
		if len(o.LocalStorage) == 0 && len(o.SessionStorage) == 0 {
			continue
		}
		seed := storageSeed{Local: [][2]string{}, Session: [][2]string{}}
		for _, e := range o.LocalStorage {
			seed.Local = append(seed.Local, [2]string{e.Name, e.Value})
		}
		for _, e := range o.SessionStorage {
			seed.Session = append(seed.Session, [2]string{e.Name, e.Value})
		}
		seeds[o.Origin] = seed
	}
	if len(seeds) == 0 {
		return "", false, nil
	}

	data, err := json.Marshal(seeds)
	if err != nil {
		return "", false, errors.Wrap(err, "failed to encode storage seed")
	}
	return fmt.Sprintf(`(() => {
  const seeds = %s;
  const seed = seeds[window.location.origin];
  if (!seed) return;
  try {
    if (window.sessionStorage.getItem(%q)) return;
    for (const [k, v] of seed.local) window.localStorage.setItem(k, v);
    for (const [k, v] of seed.session) window.sessionStorage.setItem(k, v);
    window.sessionStorage.setItem(%q, "1");
  } catch (e) {
    console.warn("storage restore failed", e);
  }
})();`, data, restoredMarker, restoredMarker), true, nil
}
