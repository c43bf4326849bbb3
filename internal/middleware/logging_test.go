package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestLogger_PreservesBodies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.POST("/echo", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusCreated, string(body))
	})

	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"message":"hola"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, `{"message":"hola"}`, w.Body.String())
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short"))
	long := strings.Repeat("a", maxLoggedBody+10)
	got := clip(long)
	assert.True(t, strings.HasSuffix(got, "...(truncated)"))
	assert.Len(t, got, maxLoggedBody+len("...(truncated)"))
}

func TestClip_KeepsRuneBoundary(t *testing.T) {
	// "ñ" 占两个字节，奇数前缀让截断点落在字符中间
	long := "x" + strings.Repeat("ñ", maxLoggedBody)
	got := clip(long)
	assert.True(t, utf8.ValidString(got))
	body := strings.TrimSuffix(got, "...(truncated)")
	assert.Len(t, body, maxLoggedBody-1)
	assert.True(t, strings.HasPrefix(long, body))
}
