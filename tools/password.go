package tools

import "golang.org/x/crypto/bcrypt"

// PasswordEncrypt 使用 bcrypt 加密密码
func PasswordEncrypt(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	PanicOnErr(err)
	return string(hash)
}

// PasswordCompare 校验明文密码与加密后的密码是否一致
func PasswordCompare(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
