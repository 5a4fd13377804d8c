package middleware

import (
	"errors"
	"net/http"
	"strings"

	"taskflow/internal/auth"
	"taskflow/internal/model"
	"taskflow/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// userIDKey is the gin context key handlers read the caller's id from.
const userIDKey = "userID"

// Auth validates the bearer token and stores the caller's user id in the
// request context. The token identifies the caller and nothing more; roles
// are resolved fresh by the services on every request.
func Auth(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				model.NewErrorResponse("Authorization header missing or invalid", ""))
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewErrorResponse(msg, ""))
			return
		}

		userID, err := util.ParseObjectID(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.NewErrorResponse("Invalid token", ""))
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated caller's id set by Auth.
func UserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, ok := v.(primitive.ObjectID)
	return id, ok
}
