package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// queryLimit reads ?limit=, clamped to [1, max].
func queryLimit(c *gin.Context, def, max int64) int64 {
	n, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// queryTime parses an RFC 3339 timestamp or a YYYY-MM-DD date. Empty yields the zero time.
func queryTime(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}
