// Package middleware holds the gin middleware of the public query server.
package middleware

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"
	// VersionHeader carries the service version on every response.
	VersionHeader = "X-Version"

	requestIDKey = "request_id"
)

// Version adds the service version to every response.
func Version(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header(VersionHeader, version)
		c.Next()
	}
}

// RequestID reuses a well formed incoming X-Request-ID or generates a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog logs every request at debug level and counts it by method and status code.
func AccessLog(log *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if m != nil {
			m.HTTPRequests.WithLabelValues(c.Request.Method, strconv.Itoa(status)).Inc()
		}

		log.DebugContext(c.Request.Context(), "http_access",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration", time.Since(start),
			"ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		)
	}
}

// CORS allows cross origin GET requests from origins. A "*" entry allows any origin.
func CORS(origins []string) gin.HandlerFunc {
	allowAll := slices.Contains(origins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			switch {
			case allowAll:
				c.Header("Access-Control-Allow-Origin", "*")
			case slices.Contains(origins, origin):
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", strings.Join([]string{http.MethodGet, http.MethodOptions}, ", "))
			c.Header("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
			c.Header("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
