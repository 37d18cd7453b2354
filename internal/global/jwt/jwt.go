package jwt

import (
	"time"

	"face-attend-system/config"

	"github.com/golang-jwt/jwt"
)

// Payload 写入 token 的用户信息
type Payload struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type Claims struct {
	Payload
	jwt.StandardClaims
}

// CreateToken 签发 HS256 访问令牌，sub 为用户邮箱
func CreateToken(payload Payload) (string, error) {
	cfg := config.Get().JWT
	now := time.Now()
	claims := Claims{
		Payload: payload,
		StandardClaims: jwt.StandardClaims{
			Subject:   payload.Email,
			Issuer:    cfg.Issuer,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(time.Duration(cfg.AccessExpire) * time.Second).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AccessSecret))
}

// ParseToken 校验签名与过期时间，失败返回 false
func ParseToken(token string) (*Claims, bool) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(config.Get().JWT.AccessSecret), nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, false
	}
	return claims, true
}
