package utils

import (
	"fmt"
	"strings"
)

const upperHex = "0123456789ABCDEF"

// ContentDisposition 生成带 RFC 5987 filename* 的响应头
// disposition 为 "attachment" 或 "inline"
func ContentDisposition(disposition, filename string) string {
	escaped := encodeExtValue(filename)
	return fmt.Sprintf("%s; filename=\"%s\"; filename*=UTF-8''%s", disposition, escaped, escaped)
}

// encodeExtValue 按字节编码，attr-char 以外的字节一律写成 %XX
func encodeExtValue(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
