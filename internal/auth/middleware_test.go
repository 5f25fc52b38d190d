package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	i := testIssuer(time.Now())
	userID := uuid.New()
	pair, err := i.Issue(userID.String(), "teacher")
	require.NoError(t, err)
	notUUID, err := i.Issue("device-7", "teacher")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", RequireUser(i), func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.String())
	})

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{name: "ok", header: "Bearer " + pair.AccessToken, code: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + pair.AccessToken, code: http.StatusOK},
		{name: "missing", header: "", code: http.StatusUnauthorized},
		{name: "refresh token", header: "Bearer " + pair.RefreshToken, code: http.StatusUnauthorized},
		{name: "non uuid subject", header: "Bearer " + notUUID.AccessToken, code: http.StatusUnauthorized},
		{name: "basic auth", header: "Basic abc", code: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, userID.String(), rec.Body.String())
			}
		})
	}
}

func TestUserIDWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := UserID(c)
	assert.False(t, ok)
}
