// Package civilday maps instants to calendar days in a fixed reference timezone.
//
// Every "what day is it" decision in the service goes through a Resolver so that
// puzzle lookup, scheduling and streak bookkeeping agree on day boundaries no matter
// which UTC offset the process runs under. Daylight saving is taken from the IANA
// rules of the reference zone rather than from a fixed offset.
package civilday

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// Layout is the textual form of a Key.
const Layout = "2006-01-02"

// DefaultZone is the reference timezone of the daily puzzle.
const DefaultZone = "America/New_York"

// Key is a civil calendar day such as "2024-06-01".
type Key string

func (k Key) String() string { return string(k) }

// Before reports whether k is an earlier day than other. Both keys must be valid.
func (k Key) Before(other Key) bool { return k < other }

// After reports whether k is a later day than other. Both keys must be valid.
func (k Key) After(other Key) bool { return k > other }

// AddDays returns the key n calendar days away from k.
func (k Key) AddDays(n int) (Key, error) {
	t, err := parseDate(string(k))
	if err != nil {
		return "", err
	}
	return Key(t.AddDate(0, 0, n).Format(Layout)), nil
}

// ParseKey validates s as a YYYY-MM-DD calendar date.
func ParseKey(s string) (Key, error) {
	if _, err := parseDate(s); err != nil {
		return "", err
	}
	return Key(s), nil
}

// InvalidKeyError is returned for strings that are not a real calendar date.
type InvalidKeyError struct {
	Value string
	Err   error
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid civil day %q", e.Value)
}

func (e *InvalidKeyError) Unwrap() error { return e.Err }

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, &InvalidKeyError{Value: s, Err: err}
	}
	// time.Parse accepts some non-canonical inputs; require a round trip.
	if t.Format(Layout) != s {
		return time.Time{}, &InvalidKeyError{Value: s}
	}
	return t, nil
}

// Resolver converts between instants and civil days of one timezone.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithNow overrides the clock. Used by tests and the admin CLI.
func WithNow(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// New creates a Resolver for loc.
func New(loc *time.Location, opts ...Option) *Resolver {
	r := &Resolver{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load creates a Resolver for the named IANA zone.
func Load(zone string, opts ...Option) (*Resolver, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", zone, err)
	}
	return New(loc, opts...), nil
}

// MustEastern returns a Resolver for US Eastern time. The zone database is embedded.
func MustEastern(opts ...Option) *Resolver {
	r, err := Load(DefaultZone, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Resolver) Location() *time.Location { return r.loc }

// Now returns the current instant.
func (r *Resolver) Now() time.Time { return r.now() }

// KeyFor returns the civil day containing t.
func (r *Resolver) KeyFor(t time.Time) Key {
	return Key(t.In(r.loc).Format(Layout))
}

// TodayKey returns the current civil day.
func (r *Resolver) TodayKey() Key {
	return r.KeyFor(r.now())
}

// YesterdayKey returns the civil day before TodayKey.
func (r *Resolver) YesterdayKey() Key {
	y, m, d := r.now().In(r.loc).Date()
	// Noon never falls into a DST gap.
	return Key(time.Date(y, m, d-1, 12, 0, 0, 0, r.loc).Format(Layout))
}

// UTCRange returns the half-open interval [start, end) of instants within day k.
// The interval is 23 or 25 hours long on transition days.
func (r *Resolver) UTCRange(k Key) (start, end time.Time, err error) {
	t, err := parseDate(string(k))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	y, m, d := t.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, r.loc).UTC()
	end = time.Date(y, m, d+1, 0, 0, 0, 0, r.loc).UTC()
	return start, end, nil
}

// CanonicalInstant returns local midnight of day k expressed in UTC. It depends only
// on k, which makes it usable as the storage key of a puzzle day.
func (r *Resolver) CanonicalInstant(k Key) (time.Time, error) {
	start, _, err := r.UTCRange(k)
	return start, err
}

// Parse validates s and returns it as a Key.
func (r *Resolver) Parse(s string) (Key, error) {
	return ParseKey(s)
}
