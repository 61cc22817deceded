package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func router(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/", AuthMiddleware(secret))
	group.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": c.GetString("email")})
	})
	adminGroup := group.Group("/admin", AdminOnly())
	adminGroup.GET("/users", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doReq(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIssueAndValidate(t *testing.T) {
	token, err := IssueToken(testSecret, "a@b.com", false)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.False(t, claims.Admin)
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	token, _ := IssueToken(testSecret, "a@b.com", false)
	w := doReq(router(testSecret), "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@b.com")
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	w := doReq(router(testSecret), "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	token, _ := IssueToken("other-secret", "a@b.com", false)
	w := doReq(router(testSecret), "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminOnly(t *testing.T) {
	user, _ := IssueToken(testSecret, "a@b.com", false)
	admin, _ := IssueToken(testSecret, "admin@qsb.app", true)

	r := router(testSecret)
	assert.Equal(t, http.StatusForbidden, doReq(r, "/admin/users", user).Code)
	assert.Equal(t, http.StatusOK, doReq(r, "/admin/users", admin).Code)
}
