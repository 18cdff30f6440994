package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ShareTokenBytes 256 位随机数，十六进制后长度为 64
const ShareTokenBytes = 32

func GenerateShareToken() (string, error) {
	buf := make([]byte, ShareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
