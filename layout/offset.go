package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseOffset parses an unsigned integer literal using Go's numeric literal
// grammar: decimal, 0x/0X hex, 0o/0O and legacy 0-prefixed octal, 0b/0B
// binary, with optional '_' digit separators.
func ParseOffset(text string) (uint64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, fmt.Errorf("empty literal")
	}
	if s[0] == '-' || s[0] == '+' {
		return 0, fmt.Errorf("signed literal %q", s)
	}
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
