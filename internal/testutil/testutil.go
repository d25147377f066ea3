package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vytor/realorai/internal/civilday"
	"github.com/vytor/realorai/internal/db"
)

var dbSeq atomic.Int64

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// Each call gets its own named database so tests never share state.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	name := fmt.Sprintf("file:testdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	d, err := db.Open(name)
	require.NoError(t, err)
	return d.DB
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	require.NoError(t, closer.Close())
}

// FixedResolver returns an Eastern-time resolver whose clock is stuck at noon of day.
func FixedResolver(t *testing.T, day string) *civilday.Resolver {
	t.Helper()
	now, err := time.ParseInLocation(civilday.Layout+" 15:04", day+" 12:00", civilday.MustEastern().Location())
	require.NoError(t, err)
	return civilday.MustEastern(civilday.WithNow(func() time.Time { return now.UTC() }))
}

// Clock is a settable time source for resolvers.
type Clock struct {
	now atomic.Int64
}

// NewClock returns a clock set to t.
func NewClock(t time.Time) *Clock {
	c := &Clock{}
	c.Set(t)
	return c
}

func (c *Clock) Set(t time.Time) { c.now.Store(t.UnixNano()) }

func (c *Clock) Now() time.Time { return time.Unix(0, c.now.Load()).UTC() }

func (c *Clock) Advance(d time.Duration) { c.Set(c.Now().Add(d)) }
