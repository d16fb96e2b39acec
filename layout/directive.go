package layout

import (
	"strings"

	"github.com/wippyai/memlayout/errors"
)

// Directive names that request a manual raw layout.
const (
	DirectivePacked     = "packed"
	DirectiveAlign      = "align"
	DirectiveHostLayout = "hostlayout"
	DirectiveRepr       = "repr"
)

var conflicting = map[string]struct{}{
	DirectivePacked:     {},
	DirectiveAlign:      {},
	DirectiveHostLayout: {},
	DirectiveRepr:       {},
}

// IsLayoutDirective reports whether name is a manual layout directive.
func IsLayoutDirective(name string) bool {
	_, ok := conflicting[strings.ToLower(name)]
	return ok
}

// ValidateDirectives rejects declarations that already carry a manual
// raw-layout directive: the resolver is the only layout authority.
func ValidateDirectives(s Struct) error {
	for _, d := range s.Directives {
		if IsLayoutDirective(d.Name) {
			pos := d.Pos
			if pos == "" {
				pos = s.Pos
			}
			return errors.ConflictingDirective(pos, []string{s.Name}, d.Name)
		}
	}
	return nil
}
