package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/config"
)

const cacheWriteTimeout = time.Second

// AvailabilityCache keeps rendered availability listings in Redis. Each
// event owns one hash whose fields are the request variants (method and
// normalized query) seen for it, so a single DEL drops every variant once
// a booking, cancellation or ticket type change commits.
type AvailabilityCache struct {
	cfg          config.CacheConfig
	rdb          *redis.Client
	log          logrus.FieldLogger
	ttl          time.Duration
	cacheControl string
}

// cachedResponse is what a hit replays.
type cachedResponse struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

// NewAvailabilityCache returns a cache over rdb. A nil client or a disabled
// config yields a cache whose middleware passes through and whose
// Invalidate does nothing.
func NewAvailabilityCache(cfg config.CacheConfig, rdb *redis.Client, log logrus.FieldLogger) *AvailabilityCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &AvailabilityCache{
		cfg:          cfg,
		rdb:          rdb,
		log:          log,
		ttl:          ttl,
		cacheControl: fmt.Sprintf("public, max-age=%d", int(ttl/time.Second)),
	}
}

// AvailabilityKey names the hash holding an event's cached listings.
func AvailabilityKey(prefix, eventID string) string {
	return prefix + ":event:" + eventID
}

// variantField identifies one rendering of the listing inside the event
// hash. Query parameters are re-encoded so their order does not matter.
func variantField(r *http.Request) string {
	return r.Method + "?" + r.URL.Query().Encode()
}

func (a *AvailabilityCache) enabled() bool {
	return a != nil && a.cfg.Enabled && a.rdb != nil
}

// Invalidate drops every cached listing of eventID. It runs after commit
// and is detached from ctx so a client hanging up cannot leave a stale
// listing behind. Failures are logged; the entry then expires on its TTL.
func (a *AvailabilityCache) Invalidate(ctx context.Context, eventID string) {
	if !a.enabled() || eventID == "" {
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()
	if err := a.rdb.Del(dctx, AvailabilityKey(a.cfg.Prefix, eventID)).Err(); err != nil {
		a.log.WithError(err).WithField("event_id", eventID).Warn("availability cache invalidation failed")
	}
}

// Middleware serves the availability route from the cache. Only 200
// responses that fit in MaxBodyBytes are stored. Routes without an
// event_id parameter are never cached.
func (a *AvailabilityCache) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !a.enabled() {
			return next
		}
		return func(c echo.Context) error {
			r := c.Request()
			eventID := c.Param("event_id")
			if eventID == "" || !a.cfg.Methods[strings.ToUpper(r.Method)] {
				return next(c)
			}
			key := AvailabilityKey(a.cfg.Prefix, eventID)
			field := variantField(r)

			if cr, ok := a.lookup(r.Context(), key, field); ok {
				return a.replay(c, cr)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(a.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			c.Response().Header().Set("Cache-Control", a.cacheControl)
			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && !cw.truncated {
				a.store(r.Context(), key, field, cachedResponse{
					Status:   cw.status,
					Header:   c.Response().Header().Clone(),
					Body:     cw.buf.Bytes(),
					StoredAt: time.Now(),
				})
			}
			return nil
		}
	}
}

func (a *AvailabilityCache) lookup(ctx context.Context, key, field string) (cachedResponse, bool) {
	raw, err := a.rdb.HGet(ctx, key, field).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			a.log.WithError(err).WithField("key", key).Debug("availability cache read failed")
		}
		return cachedResponse{}, false
	}
	var cr cachedResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return cachedResponse{}, false
	}
	// writes refresh the hash TTL, so each variant carries its own age
	if time.Since(cr.StoredAt) > a.ttl {
		return cachedResponse{}, false
	}
	return cr, true
}

func (a *AvailabilityCache) store(ctx context.Context, key, field string, cr cachedResponse) {
	payload, err := json.Marshal(cr)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()
	_, err = a.rdb.TxPipelined(wctx, func(p redis.Pipeliner) error {
		p.HSet(wctx, key, field, payload)
		p.Expire(wctx, key, a.ttl)
		return nil
	})
	if err != nil {
		a.log.WithError(err).WithField("key", key).Debug("availability cache write failed")
	}
}

func (a *AvailabilityCache) replay(c echo.Context, cr cachedResponse) error {
	h := c.Response().Header()
	for k, vals := range cr.Header {
		switch http.CanonicalHeaderKey(k) {
		case echo.HeaderContentLength, "X-Cache", "Cache-Control", echo.HeaderXRequestID:
			continue
		}
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	h.Set("X-Cache", "HIT")
	h.Set("Cache-Control", a.cacheControl)
	c.Response().WriteHeader(cr.Status)
	_, err := c.Response().Write(cr.Body)
	return err
}

// captureWriter copies what the handler writes, up to limit bytes, while
// forwarding it to the client unchanged.
type captureWriter struct {
	http.ResponseWriter
	status    int
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.truncated {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.truncated = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}
