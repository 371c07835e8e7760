package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("generates id", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Body.String())
		assert.Equal(t, w.Body.String(), w.Header().Get("X-Request-ID"))
	})

	t.Run("keeps provided id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
		req.Header.Set("X-Request-ID", "req-123")

		w := serve(router, req)

		assert.Equal(t, "req-123", w.Body.String())
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	})
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	router := gin.New()
	router.Use(RequestID())
	router.Use(Logger(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/bad", func(c *gin.Context) { c.String(http.StatusBadRequest, "bad") })
	router.GET("/fail", func(c *gin.Context) { c.String(http.StatusInternalServerError, "fail") })

	for _, path := range []string{"/ok", "/bad", "/fail"} {
		serve(router, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	entries := logs.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
		assert.Equal(t, "/bad", entries[1].ContextMap()["path"])
		assert.NotEmpty(t, entries[2].ContextMap()["request_id"])
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(RequestID())
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) { panic("test panic") })
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	t.Run("recovers from panic", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/panic", http.NoBody))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"test panic"}`, w.Body.String())
		assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
	})

	t.Run("passes through", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/ok", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	t.Run("sets headers", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("preflight", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodOptions, "/test", http.NoBody))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestBodyLimit(t *testing.T) {
	router := gin.New()
	router.POST("/upload", BodyLimit(8), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	t.Run("within limit", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small")))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared length over limit", func(t *testing.T) {
		w := serve(router, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("far too large")))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"File too large"}`, w.Body.String())
	})
}
