package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	controller "github.com/upawatch/upawatch/pkg/controller/http"
)

func TestGetFrontendURL(t *testing.T) {
	t.Run("configured URL wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "internal:8080"
		gt.Equal(t, controller.GetFrontendURL(req, "https://upa.example.com/"), "https://upa.example.com")
	})

	t.Run("host header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "upa.example.com"
		gt.Equal(t, controller.GetFrontendURL(req, ""), "https://upa.example.com")
	})

	t.Run("forwarded headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "10.0.0.5:8080"
		req.Header.Set("X-Forwarded-Proto", "http")
		req.Header.Set("X-Forwarded-Host", "painel.example.com, proxy.internal")
		gt.Equal(t, controller.GetFrontendURL(req, ""), "http://painel.example.com")
	})
}

func TestOriginChecker(t *testing.T) {
	request := func(host, origin string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Host = host
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		return req
	}

	t.Run("configured origin", func(t *testing.T) {
		check := controller.OriginChecker("https://upa.example.com")
		gt.True(t, check(request("internal:8080", "https://upa.example.com")))
		gt.False(t, check(request("internal:8080", "http://upa.example.com")))
		gt.False(t, check(request("internal:8080", "https://evil.example.com")))
	})

	t.Run("same host without configuration", func(t *testing.T) {
		check := controller.OriginChecker("")
		gt.True(t, check(request("upa.example.com", "https://upa.example.com")))
		gt.False(t, check(request("upa.example.com", "https://evil.example.com")))
	})

	t.Run("missing origin is accepted", func(t *testing.T) {
		check := controller.OriginChecker("https://upa.example.com")
		gt.True(t, check(request("internal:8080", "")))
	})

	t.Run("vite dev server on localhost", func(t *testing.T) {
		check := controller.OriginChecker("")
		gt.True(t, check(request("localhost:8080", "http://localhost:5173")))
		gt.False(t, check(request("upa.example.com", "http://localhost:5173")))
	})
}
