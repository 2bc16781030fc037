package cache

import (
	"fmt"
	"strings"
)

// GenerateKey joins a prefix and parts with ":".
func GenerateKey(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// BuildPattern creates a glob pattern for key matching.
func BuildPattern(prefix string) string {
	return prefix + "*"
}
