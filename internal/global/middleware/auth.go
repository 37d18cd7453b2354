package middleware

import (
	"errors"
	"strings"

	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/jwt"
	"face-attend-system/internal/global/response"
	"face-attend-system/internal/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UserKey Auth 写入 gin.Context 的当前用户
const UserKey = "user"

// Auth 校验 Bearer token 并加载当前用户，roles 非空时还要求角色匹配
func Auth(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Fail(c, response.ErrTokenInvalid)
			c.Abort()
			return
		}

		payload, valid := jwt.ParseToken(token)
		if !valid {
			response.Fail(c, response.ErrTokenInvalid)
			c.Abort()
			return
		}

		// 用户被删除或邮箱不一致时 token 作废
		var user model.User
		err := database.DB.WithContext(c.Request.Context()).
			Where("id = ? AND email = ?", payload.UserID, payload.Subject).
			First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			response.Fail(c, response.ErrTokenInvalid)
			c.Abort()
			return
		case err != nil:
			response.Fail(c, response.ErrDatabase.WithOrigin(err))
			c.Abort()
			return
		}

		if len(roles) > 0 && !hasRole(user.Role, roles) {
			response.Fail(c, response.ErrForbidden)
			c.Abort()
			return
		}
		c.Set(jwt.PayloadKey, payload)
		c.Set(UserKey, &user)
		c.Next()
	}
}

// AdminOnly 仅管理员可访问
func AdminOnly() gin.HandlerFunc {
	return Auth(model.RoleAdmin)
}

// GetUser 取出 Auth 加载的当前用户
func GetUser(c *gin.Context) (*model.User, bool) {
	v, _ := c.Get(UserKey)
	user, ok := v.(*model.User)
	return user, ok
}

// bearerToken 取出 Authorization 中的 token，认证方案名不区分大小写
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
