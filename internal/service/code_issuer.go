package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/clock"
)

const (
	codeAlphabet        = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultCodeLength   = 10
	maxCodeAttempts     = 5
	fallbackCodePrefix  = "BK"
	maxUnbiasedCodeByte = 252 // largest multiple of 36 not above 256
)

// CodeLookup reports whether a booking code is already taken.
type CodeLookup interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// CodeIssuer produces admission codes that are unique across all bookings.
// Random candidates are checked against storage up to five times; after
// that a fallback derived from the clock and a process counter is returned
// so issuance always terminates. The unique index on bookings.code remains
// the final guard against races between the check and the insert.
type CodeIssuer struct {
	lookup  CodeLookup
	clock   clock.Clock
	length  int
	random  io.Reader
	counter atomic.Uint64
	log     logrus.FieldLogger
}

// CodeIssuerOption customizes a CodeIssuer.
type CodeIssuerOption func(*CodeIssuer)

// WithCodeLength overrides the length of random codes.
func WithCodeLength(n int) CodeIssuerOption {
	return func(c *CodeIssuer) {
		if n >= 6 && n <= 32 {
			c.length = n
		}
	}
}

// WithRandomSource replaces crypto/rand, for tests.
func WithRandomSource(r io.Reader) CodeIssuerOption {
	return func(c *CodeIssuer) {
		if r != nil {
			c.random = r
		}
	}
}

// WithCodeLogger sets the logger used when falling back.
func WithCodeLogger(l logrus.FieldLogger) CodeIssuerOption {
	return func(c *CodeIssuer) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCodeIssuer returns an issuer checking uniqueness through lookup.
func NewCodeIssuer(lookup CodeLookup, clk clock.Clock, opts ...CodeIssuerOption) *CodeIssuer {
	c := &CodeIssuer{
		lookup: lookup,
		clock:  clk,
		length: DefaultCodeLength,
		random: rand.Reader,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue returns a code not used by any existing booking at the time of the
// check.
func (c *CodeIssuer) Issue(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := c.randomCode()
		if err != nil {
			return "", fmt.Errorf("generate booking code: %w", err)
		}
		taken, err := c.lookup.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check booking code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	code := c.fallbackCode()
	c.log.WithField("code", code).Warn("booking code collisions exhausted random attempts, using fallback")
	return code, nil
}

func (c *CodeIssuer) randomCode() (string, error) {
	var (
		sb  strings.Builder
		buf = make([]byte, c.length)
	)
	sb.Grow(c.length)
	for sb.Len() < c.length {
		if _, err := io.ReadFull(c.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= maxUnbiasedCodeByte {
				continue
			}
			sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
			if sb.Len() == c.length {
				break
			}
		}
	}
	return sb.String(), nil
}

// fallbackCode is BK followed by the base36 clock reading in nanoseconds and
// a base36 sequence number, which cannot repeat within one process.
func (c *CodeIssuer) fallbackCode() string {
	seq := c.counter.Add(1)
	ts := strconv.FormatInt(c.clock.Now().UnixNano(), 36)
	return strings.ToUpper(fallbackCodePrefix + ts + strconv.FormatUint(seq, 36))
}
