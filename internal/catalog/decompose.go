package catalog

import (
	"strings"

	"github.com/muurk/easyremote/internal/ecp"
)

// Decompose turns a title into literal keypresses. Words are split on
// whitespace; every rune of a word becomes one Lit_ command and a single
// space command separates words. There is no trailing space.
func Decompose(title string) []ecp.Command {
	words := strings.Fields(title)
	var out []ecp.Command
	for i, word := range words {
		if i > 0 {
			out = append(out, ecp.Literal(' '))
		}
		for _, r := range word {
			out = append(out, ecp.Literal(r))
		}
	}
	return out
}
