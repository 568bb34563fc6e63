package service

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/clock"
)

type fakeLookup struct {
	mu    sync.Mutex
	taken func(code string) bool
	err   error
	calls int
}

func (f *fakeLookup) CodeExists(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.taken != nil && f.taken(code), nil
}

var codePattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

func TestCodeIssuer_IssuesFixedLengthAlphanumericCodes(t *testing.T) {
	t.Parallel()
	issuer := NewCodeIssuer(&fakeLookup{}, clock.NewSystem(), WithCodeLogger(quietLogger()))

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		code, err := issuer.Issue(context.Background())
		require.NoError(t, err)
		require.Regexp(t, codePattern, code)
		seen[code] = struct{}{}
	}
	assert.Len(t, seen, 500)
}

func TestCodeIssuer_SkipsBiasedBytes(t *testing.T) {
	t.Parallel()
	src := append([]byte{255, 254, 253, 252}, bytes.Repeat([]byte{1}, 16)...)
	issuer := NewCodeIssuer(&fakeLookup{}, clock.NewSystem(), WithRandomSource(bytes.NewReader(src)), WithCodeLength(6))

	code, err := issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", code)
}

func TestCodeIssuer_FallsBackAfterFiveCollisions(t *testing.T) {
	t.Parallel()
	lookup := &fakeLookup{taken: func(string) bool { return true }}
	issuer := NewCodeIssuer(lookup, clock.NewFixed(time.Unix(1700000000, 0)), WithCodeLogger(quietLogger()))

	first, err := issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, lookup.calls)
	assert.True(t, strings.HasPrefix(first, "BK"))
	assert.Equal(t, strings.ToUpper(first), first)

	second, err := issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "fallback codes must not repeat under a frozen clock")
}

func TestCodeIssuer_RetriesOnlyWhileTaken(t *testing.T) {
	t.Parallel()
	n := 0
	lookup := &fakeLookup{taken: func(string) bool { n++; return n < 3 }}
	issuer := NewCodeIssuer(lookup, clock.NewSystem())

	code, err := issuer.Issue(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, codePattern, code)
	assert.Equal(t, 3, lookup.calls)
}

func TestCodeIssuer_PropagatesLookupError(t *testing.T) {
	t.Parallel()
	boom := errors.New("db down")
	issuer := NewCodeIssuer(&fakeLookup{err: boom}, clock.NewSystem())

	_, err := issuer.Issue(context.Background())
	assert.ErrorIs(t, err, boom)
}
