package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestInfraSkipper(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/health", true},
		{"/health/db", true},
		{"/metrics", true},
		{"/auth/login", false},
		{"/appointments/:id", false},
		{"/health/extra", false},
		{"/", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetPath(tt.path)

			if got := InfraSkipper(c); got != tt.want {
				t.Errorf("InfraSkipper(%s) = %v, want %v", tt.path, got, tt.want)
			}
			if got := IsInfraPath(tt.path); got != tt.want {
				t.Errorf("IsInfraPath(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
