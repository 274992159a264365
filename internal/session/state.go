// Package session caches authenticated browser state per named key so an
// expensive login runs at most once per run and every later test restores it.
package session

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Cookie is a browser cookie in Playwright storage-state form.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Entry is one web storage item.
type Entry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Origin holds the web storage captured for one origin.
type Origin struct {
	Origin         string  `json:"origin"`
	LocalStorage   []Entry `json:"localStorage"`
	SessionStorage []Entry `json:"sessionStorage,omitempty"`
}

// State is the captured browser state stored under a session key. Its JSON
// encoding is a superset of the Playwright storage-state file.
type State struct {
	Key        string    `json:"key,omitempty"`
	Cookies    []Cookie  `json:"cookies"`
	Origins    []Origin  `json:"origins"`
	CapturedAt time.Time `json:"capturedAt,omitempty"`
}

// Clone returns a deep copy so stores never share slices with callers.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{
		Key:        s.Key,
		CapturedAt: s.CapturedAt,
		Cookies:    append([]Cookie(nil), s.Cookies...),
		Origins:    make([]Origin, len(s.Origins)),
	}
	for i, o := range s.Origins {
		out.Origins[i] = Origin{
			Origin:         o.Origin,
			LocalStorage:   append([]Entry(nil), o.LocalStorage...),
			SessionStorage: append([]Entry(nil), o.SessionStorage...),
		}
	}
	return out
}

// IsEmpty reports whether the state carries no cookies and no storage.
func (s *State) IsEmpty() bool {
	if s == nil {
		return true
	}
	if len(s.Cookies) > 0 {
		return false
	}
	for _, o := range s.Origins {
		if len(o.LocalStorage) > 0 || len(o.SessionStorage) > 0 {
			return false
		}
	}
	return true
}

// SetLocalStorage sets name=value in the localStorage of origin, adding the
// origin if it is not present yet.
func (s *State) SetLocalStorage(origin, name, value string) {
	for i := range s.Origins {
		if s.Origins[i].Origin != origin {
			continue
		}
		for j := range s.Origins[i].LocalStorage {
			if s.Origins[i].LocalStorage[j].Name == name {
				s.Origins[i].LocalStorage[j].Value = value
				return
			}
		}
		s.Origins[i].LocalStorage = append(s.Origins[i].LocalStorage, Entry{Name: name, Value: value})
		return
	}
	s.Origins = append(s.Origins, Origin{Origin: origin, LocalStorage: []Entry{{Name: name, Value: value}}})
}

// Marshal encodes the state as indented JSON.
func (s *State) Marshal() ([]byte, error) {
	if s == nil {
		return nil, errors.New("cannot encode nil session state")
	}
	out := s.Clone()
	if out.Cookies == nil {
		out.Cookies = []Cookie{}
	}
	if out.Origins == nil {
		out.Origins = []Origin{}
	}
	for i := range out.Origins {
		if out.Origins[i].LocalStorage == nil {
			out.Origins[i].LocalStorage = []Entry{}
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode session state")
	}
	return data, nil
}

// Unmarshal decodes a state previously produced by Marshal or by Playwright.
func Unmarshal(data []byte) (*State, error) {
	s := &State{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, "failed to decode session state")
	}
	return s, nil
}
