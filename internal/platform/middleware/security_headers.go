package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// SecurityHeadersConfig controls the transport and caching headers.
type SecurityHeadersConfig struct {
	// HSTS pins browsers to HTTPS. Development servers run on plain HTTP
	// and leave it off.
	HSTS bool
	// PublicPrefixes are paths whose responses carry no personal data, such
	// as the compatibility table. They may be cached for PublicMaxAge.
	PublicPrefixes []string
	PublicMaxAge   time.Duration
}

func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		HSTS:           true,
		PublicPrefixes: []string{"/api/v1/blood-groups"},
		PublicMaxAge:   time.Hour,
	}
}

// SecurityHeaders locks down a JSON API that serves donor and patient
// records. Everything outside cfg.PublicPrefixes is marked no-store, the
// report export included.
func SecurityHeaders(cfg SecurityHeadersConfig) echo.MiddlewareFunc {
	publicCache := "public, max-age=" + strconv.Itoa(int(cfg.PublicMaxAge/time.Second))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			if cfg.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			if cfg.PublicMaxAge > 0 && hasPrefix(c.Request().URL.Path, cfg.PublicPrefixes) &&
				c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				h.Set("Cache-Control", publicCache)
			} else {
				h.Set("Cache-Control", "no-store")
				h.Set("Pragma", "no-cache")
			}
			return next(c)
		}
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
