package cache

import (
	"fmt"
	"strings"
)

// GenerateKeyWithParams builds a colon-separated cache key from a prefix and
// an arbitrary list of parameters.
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		b.WriteByte(':')
		fmt.Fprintf(&b, "%v", p)
	}
	return b.String()
}
