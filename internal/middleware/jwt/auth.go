package jwt

import (
	"strings"

	"TaskNest/pkg/back"
	"TaskNest/pkg/util/myjwt"
	"TaskNest/pkg/xerr"

	"github.com/gin-gonic/gin"
)

// BearerToken 提取 Authorization: Bearer xxx 中的 token
func BearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			back.Error(c, xerr.Unauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		claims, err := myjwt.ParseToken(tokenString)
		if err != nil {
			back.Error(c, xerr.Unauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set("uuid", claims.Uuid)
		c.Set("username", claims.Username)
		c.Next()
	}
}
