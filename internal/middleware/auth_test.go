package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAuthRouter(configuredToken string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TokenAuth(configuredToken))
	r.GET("/open", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/guarded", RequireAuth(configuredToken), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configured string
		header     string
		query      string
		wantStatus int
	}{
		{name: "no token configured leaves guard open", configured: "", header: "", wantStatus: http.StatusOK},
		{name: "missing token is rejected", configured: "sekrit", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong token is rejected", configured: "sekrit", header: "nope", wantStatus: http.StatusUnauthorized},
		{name: "bare token passes", configured: "sekrit", header: "sekrit", wantStatus: http.StatusOK},
		{name: "bearer prefix passes", configured: "sekrit", header: "Bearer sekrit", wantStatus: http.StatusOK},
		{name: "bearer is case insensitive", configured: "sekrit", header: "bearer sekrit", wantStatus: http.StatusOK},
		{name: "query token passes", configured: "sekrit", query: "token=sekrit", wantStatus: http.StatusOK},
		{name: "wrong query token is rejected", configured: "sekrit", query: "token=nope", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newAuthRouter(tt.configured)

			target := "/guarded"
			if tt.query != "" {
				target += "?" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestUnguardedRoutesIgnoreBadTokens(t *testing.T) {
	t.Parallel()

	r := newAuthRouter("sekrit")
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidateToken("anything", ""), "empty configured token disables the check")
	assert.True(t, ValidateToken("sekrit", "sekrit"))
	assert.True(t, ValidateToken("Bearer sekrit", "sekrit"))
	assert.False(t, ValidateToken("wrong", "sekrit"))
	assert.False(t, ValidateToken("", "sekrit"))
}

func TestNormalizeToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", NormalizeToken("  abc  "))
	assert.Equal(t, "abc", NormalizeToken("Bearer abc"))
	assert.Equal(t, "abc", NormalizeToken("bearer   abc"))
	assert.Equal(t, "", NormalizeToken("   "))
}
