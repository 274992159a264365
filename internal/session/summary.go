package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/xeonx/timeago"
)

// Summary describes a stored session without exposing cookie values.
type Summary struct {
	Key        string    `json:"key"`
	Cookies    int       `json:"cookies"`
	Origins    []string  `json:"origins"`
	CapturedAt time.Time `json:"captured_at"`
	// ExpiresAt is the earliest cookie expiry; zero when every cookie is a
	// session cookie.
	ExpiresAt time.Time `json:"expires_at"`
}

// Summarize builds the summary of state stored under key.
func Summarize(key string, s *State) Summary {
	sum := Summary{Key: key, CapturedAt: s.CapturedAt}
	sum.Cookies = len(s.Cookies)
	for _, o := range s.Origins {
		sum.Origins = append(sum.Origins, o.Origin)
	}
	for _, c := range s.Cookies {
		if c.Expires <= 0 {
			continue
		}
		exp := time.Unix(int64(c.Expires), 0).UTC()
		if sum.ExpiresAt.IsZero() || exp.Before(sum.ExpiresAt) {
			sum.ExpiresAt = exp
		}
	}
	return sum
}

// Age renders how long ago the session was captured, e.g. "2 hours ago".
func (s Summary) Age(now time.Time) string {
	if s.CapturedAt.IsZero() {
		return "unknown"
	}
	return timeago.English.FormatReference(s.CapturedAt, now)
}

// Expired reports whether a cookie of the session has expired by now.
func (s Summary) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// List summarizes every session in the store, ordered by key.
func List(ctx context.Context, store Store) ([]Summary, error) {
	keys, err := store.Keys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	out := make([]Summary, 0, len(keys))
	for _, k := range keys {
		s, err := store.Load(ctx, k)
		if errors.Is(err, ErrNotFound) {
			// Expired between Keys and Load.
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load session %q", k)
		}
		out = append(out, Summarize(k, s))
	}
	return out, nil
}
