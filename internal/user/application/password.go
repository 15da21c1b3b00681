package application

import (
	"crypto/rand"
	"math/big"
)

const passwordChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

// RandomPassword 生成指定长度的临时密码，注册与找回密码时下发
func RandomPassword(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(passwordChars)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = passwordChars[n.Int64()]
	}
	return string(buf), nil
}
