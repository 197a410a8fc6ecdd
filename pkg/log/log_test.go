package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &out))
	return out
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := gin.New()
	r.Use(GinMiddleware(logger))
	r.GET("/users/:id", func(c *gin.Context) {
		c.Set(FieldUserID, uint(7))
		c.Set(FieldUsername, "susan")
		l := Ctx(c.Request.Context())
		l.Info().Msg("inside handler")
		c.Status(http.StatusOK)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	req := httptest.NewRequest(http.MethodGet, "/users/7", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), `"message":"inside handler"`)
	entry := lastLine(t, &buf)
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "req-1", entry[FieldRequestID])
	assert.Equal(t, "/users/7", entry[FieldPath])
	assert.Equal(t, "7", entry[FieldUserID])
	assert.Equal(t, "susan", entry[FieldUsername])
	assert.EqualValues(t, 200, entry[FieldStatus])

	buf.Reset()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	entry = lastLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctx = With(ctx, FieldTargetID, "9")

	l := Ctx(ctx)
	l.Info().Msg("hello")
	assert.Equal(t, "9", lastLine(t, &buf)[FieldTargetID])

	buf.Reset()
	prev := global
	global = zerolog.New(&buf)
	defer func() { global = prev }()
	g := Ctx(context.Background())
	g.Info().Msg("global")
	assert.Equal(t, "global", lastLine(t, &buf)["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
}
