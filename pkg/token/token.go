package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// 认领/邀请令牌的随机字节数，Base64URL 编码后约 43 字符
const tokenBytes = 32

// New 生成不可猜测的 URL 安全令牌
// 用于短信一键认领链接与 Casual 邀请验证链接
func New() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("生成随机令牌失败: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
