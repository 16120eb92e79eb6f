// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/munidigital/ventanilla-backend/internal/models"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, "Authentication required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.UnauthorizedResponse(c, "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(parts[1])
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.Name)
		c.Set("user_role", claims.Role)
		c.Set("user_department", claims.Department)
		c.Next()
	}
}

// RoleRequired allows any of the given roles through.
func RoleRequired(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := utils.GetUserRoleFromContext(c)
		if !exists {
			utils.ForbiddenResponse(c, "Access denied")
			c.Abort()
			return
		}

		for _, allowed := range roles {
			if role == string(allowed) {
				c.Next()
				return
			}
		}

		utils.ForbiddenResponse(c, "Access denied")
		c.Abort()
	}
}

// DepartmentRequired restricts a route group to funcionarios of one
// department. Admins pass regardless of department.
func DepartmentRequired(department string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := utils.GetUserRoleFromContext(c)
		if role == string(models.UserRoleAdmin) {
			c.Next()
			return
		}

		userDepartment, exists := c.Get("user_department")
		if !exists || role != string(models.UserRoleFuncionario) || userDepartment != department {
			utils.ForbiddenResponse(c, "Access restricted to department staff")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActiveUser re-checks the account against the database so a deactivated
// user is cut off even with a still-valid token.
func ActiveUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := utils.GetUserIDFromContext(c)
		if !exists {
			utils.UnauthorizedResponse(c, "Authentication required")
			c.Abort()
			return
		}

		var user models.User
		if err := db.Select("id", "is_active").First(&user, userID).Error; err != nil {
			utils.UnauthorizedResponse(c, "Account not found")
			c.Abort()
			return
		}

		if !user.IsActive {
			utils.ForbiddenResponse(c, "Account is disabled")
			c.Abort()
			return
		}
		c.Next()
	}
}
