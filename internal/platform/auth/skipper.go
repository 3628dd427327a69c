package auth

import (
	"github.com/labstack/echo/v4"
)

// infraPaths are operational endpoints that never carry credentials and are
// excluded from rate limiting and request logging.
var infraPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// InfraSkipper reports whether the matched route is an infrastructure
// endpoint. It has the shape of echo's middleware.Skipper.
func InfraSkipper(c echo.Context) bool {
	return infraPaths[c.Path()]
}

// IsInfraPath reports whether path is an infrastructure endpoint.
func IsInfraPath(path string) bool {
	return infraPaths[path]
}
