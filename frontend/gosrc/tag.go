package gosrc

import (
	"strconv"
	"strings"
)

type tagPair struct {
	key   string
	value string
}

// splitTag splits a struct tag into its key:"value" pairs in order,
// keeping repeated keys. It follows the reflect.StructTag grammar; ok is
// false when any part of the tag is malformed.
func splitTag(tag string) (pairs []tagPair, ok bool) {
	for tag != "" {
		i := 0
		for i < len(tag) && tag[i] == ' ' {
			i++
		}
		tag = tag[i:]
		if tag == "" {
			return pairs, true
		}

		i = 0
		for i < len(tag) && tag[i] > ' ' && tag[i] != ':' && tag[i] != '"' && tag[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(tag) || tag[i] != ':' || tag[i+1] != '"' {
			return pairs, false
		}
		key := tag[:i]
		tag = tag[i+1:]

		i = 1
		for i < len(tag) && tag[i] != '"' {
			if tag[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(tag) {
			return pairs, false
		}
		quoted := tag[:i+1]
		tag = tag[i+1:]

		value, err := strconv.Unquote(quoted)
		if err != nil {
			return pairs, false
		}
		pairs = append(pairs, tagPair{key: key, value: value})
	}
	return pairs, true
}

// joinTag renders pairs back into struct tag syntax.
func joinTag(pairs []tagPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.key+":"+strconv.Quote(p.value))
	}
	return strings.Join(parts, " ")
}
