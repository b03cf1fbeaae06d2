package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"backend/internal/service"
	"backend/internal/workflow"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ctxUserID   = "userID"
	ctxUserName = "userName"
	ctxRoles    = "userRoles"
)

// AuthRequired validates the access token from the Authorization header or
// the access_token cookie and stashes the caller's identity in the context.
func AuthRequired(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "missing access token"))
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid or expired token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid token claims"))
			return
		}

		sub, _ := claims["sub"].(string)
		if _, err := uuid.Parse(sub); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid subject claim"))
			return
		}

		name, _ := claims["name"].(string)
		roles := make([]string, 0, 4)
		if raw, ok := claims["roles"].([]interface{}); ok {
			for _, r := range raw {
				if s, ok := r.(string); ok {
					roles = append(roles, s)
				}
			}
		}

		c.Set(ctxUserID, sub)
		c.Set(ctxUserName, name)
		c.Set(ctxRoles, roles)
		c.Next()
	}
}

// Guard gates routes on permission codes, resolved through the cached role
// table. Role names in the token tolerate spacing and case drift.
type Guard struct {
	roles service.RoleService
}

func NewGuard(roles service.RoleService) *Guard {
	return &Guard{roles: roles}
}

func (g *Guard) Require(code string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := CurrentActor(c)
		if actor.ID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "authentication required"))
			return
		}

		resolver, err := g.roles.Resolver(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "permission check failed"))
			return
		}

		if !resolver.HasPermission(actor.Roles, code) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, fmt.Sprintf("missing permission: %s", code)))
			return
		}
		c.Next()
	}
}

// CurrentActor rebuilds the caller identity set by AuthRequired. Returns a
// zero actor when the request is unauthenticated.
func CurrentActor(c *gin.Context) workflow.Actor {
	idStr, _ := c.Get(ctxUserID)
	id, err := uuid.Parse(fmt.Sprint(idStr))
	if err != nil {
		return workflow.Actor{}
	}

	name, _ := c.Get(ctxUserName)
	var roles []string
	if raw, ok := c.Get(ctxRoles); ok {
		roles, _ = raw.([]string)
	}

	return workflow.Actor{
		ID:    id,
		Name:  fmt.Sprint(name),
		Roles: roles,
	}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie
	}
	return ""
}
