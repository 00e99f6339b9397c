package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/m-mizutani/gt"
	controller "github.com/upawatch/upawatch/pkg/controller/http"
)

func newSPAFS() http.FileSystem {
	return http.FS(fstest.MapFS{
		"index.html":            {Data: []byte(`<html><body><div id="root"></div></body></html>`)},
		"assets/index-3f9a.js":  {Data: []byte(`console.log("mapa")`)},
		"assets/index-3f9a.css": {Data: []byte(`body{margin:0}`)},
		"manifest.webmanifest":  {Data: []byte(`{"name":"UPA"}`)},
	})
}

func TestSPAHandler(t *testing.T) {
	handler, err := controller.NewSPAHandler(newSPAFS())
	gt.NoError(t, err).Required()

	serve := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("hashed asset is cached", func(t *testing.T) {
		w := serve("/assets/index-3f9a.js")
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, w.Header().Get("Content-Type"), "application/javascript; charset=utf-8")
		gt.S(t, w.Header().Get("Cache-Control")).Contains("immutable")
		gt.S(t, w.Body.String()).Contains("console.log")
	})

	t.Run("stylesheet", func(t *testing.T) {
		w := serve("/assets/index-3f9a.css")
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, w.Header().Get("Content-Type"), "text/css; charset=utf-8")
	})

	t.Run("manifest outside assets is not cached", func(t *testing.T) {
		w := serve("/manifest.webmanifest")
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, w.Header().Get("Content-Type"), "application/manifest+json")
		gt.Equal(t, w.Header().Get("Cache-Control"), "")
	})

	t.Run("client route falls back to index", func(t *testing.T) {
		w := serve("/admin/reports")
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, w.Header().Get("Content-Type"), "text/html; charset=utf-8")
		gt.Equal(t, w.Header().Get("Cache-Control"), "no-cache")
		gt.S(t, w.Body.String()).Contains(`<div id="root">`)
	})

	t.Run("root serves index", func(t *testing.T) {
		w := serve("/")
		gt.Equal(t, w.Code, http.StatusOK)
		gt.S(t, w.Body.String()).Contains("<html>")
	})

	t.Run("directory serves index", func(t *testing.T) {
		w := serve("/assets/")
		gt.Equal(t, w.Code, http.StatusOK)
		gt.S(t, w.Body.String()).Contains(`<div id="root">`)
	})

	t.Run("path traversal stays inside the build", func(t *testing.T) {
		w := serve("/../../etc/passwd")
		gt.Equal(t, w.Code, http.StatusOK)
		gt.S(t, w.Body.String()).Contains(`<div id="root">`)
	})
}

func TestSPAHandlerWithoutIndex(t *testing.T) {
	_, err := controller.NewSPAHandler(http.FS(fstest.MapFS{
		"assets/app.js": {Data: []byte("x")},
	}))
	gt.Error(t, err)
}
