package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route patterns that bypass authentication: health and
// metrics, login/registration, the compatibility table and upcoming camps.
var publicPaths = map[string]bool{
	"/health":                     true,
	"/health/db":                  true,
	"/metrics":                    true,
	"/auth/login":                 true,
	"/auth/register":              true,
	"/api/v1/blood-groups":        true,
	"/api/v1/blood-groups/:label": true,
	"/api/v1/camps/upcoming":      true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication. It matches the registered route pattern, not the raw URL.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given route pattern is public.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
