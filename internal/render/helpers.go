// Package render produces Graphviz DOT from traced control flow.
package render

import (
	"fmt"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// dotEscape escapes a node name for DOT HTML labels.
func dotEscape(s string) string {
	return htmlEscaper.Replace(s)
}

// dotID maps a node name to a DOT identifier. Bytes outside [A-Za-z0-9_]
// become _xx hex escapes.
func dotID(name string) string {
	var b strings.Builder
	b.WriteString("n_")
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}

// truncLabel keeps the last maxLen bytes of s. Generated names share a
// prefix and differ in the trailing address.
func truncLabel(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen+3:]
}
