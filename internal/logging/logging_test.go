package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	output := buf.String()
	require.NotContains(t, output, "hidden")
	require.Contains(t, output, "shown")
}

func TestNewFallsBackToInfo(t *testing.T) {
	logger := New("verbose", "json", &bytes.Buffer{})
	require.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "console", &buf)
	logger.Info().Msg("hello console")

	output := buf.String()
	require.Contains(t, output, "hello console")
	require.False(t, strings.HasPrefix(strings.TrimSpace(output), "{"))
}

func TestMiddlewareLevelsByStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	r := gin.New()
	r.Use(Middleware(New("debug", "json", &buf)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	expected := map[string]string{"/ok": "info", "/missing": "warn", "/boom": "error"}
	for path, level := range expected {
		buf.Reset()
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		require.Equal(t, level, entry["level"], path)
		require.Equal(t, path, entry["path"])
		require.Equal(t, http.MethodGet, entry["method"])
	}
}
