package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "responseMeta"

// responseMeta accumulates per-request metadata surfaced in the response
// envelope. The cache flag mirrors the ledger's redis list cache: handlers
// flip it when a list view was served from cache instead of a sheet read.
type responseMeta struct {
	start    time.Time
	cacheHit *bool
}

// WithResponseMeta stashes a metadata accumulator on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now()})
		c.Next()
	}
}

// SetCacheHit records whether the attendance list came from the list cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if meta := metaFromContext(c); meta != nil {
		meta.cacheHit = &hit
	}
}

// ExtractMeta renders the accumulated metadata for the response envelope,
// or nil when the accumulator middleware did not run so envelopes omit the
// meta field entirely.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := metaFromContext(c)
	if meta == nil {
		return nil
	}
	out := map[string]interface{}{
		"processing_time_ms": time.Since(meta.start).Milliseconds(),
	}
	if meta.cacheHit != nil {
		out["cache_hit"] = *meta.cacheHit
	}
	return out
}

func metaFromContext(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	if value, exists := c.Get(responseMetaKey); exists {
		if meta, ok := value.(*responseMeta); ok {
			return meta
		}
	}
	return nil
}
