package catalog

import (
	"reflect"
	"testing"

	"github.com/muurk/easyremote/internal/ecp"
)

func literals(s string) []ecp.Command {
	var out []ecp.Command
	for _, r := range s {
		out = append(out, ecp.Literal(r))
	}
	return out
}

func TestDecompose(t *testing.T) {
	tests := []struct {
		title string
		want  []ecp.Command
	}{
		{"Star Trek: Picard", literals("Star Trek: Picard")},
		{"Good Witch", literals("Good Witch")},
		{"  Good   Witch ", literals("Good Witch")},
		{"Hallmark Movies & Mysteries", literals("Hallmark Movies & Mysteries")},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := Decompose(tt.title)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decompose(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestDecompose_Shape(t *testing.T) {
	got := Decompose("Star Trek: Picard")
	space := ecp.Literal(' ')

	var spaces []int
	for i, c := range got {
		if c == space {
			spaces = append(spaces, i)
		}
	}
	if !reflect.DeepEqual(spaces, []int{4, 10}) {
		t.Errorf("space positions = %v, want [4 10]", spaces)
	}
	if got[len(got)-1] == space {
		t.Error("Decompose() ends with a space")
	}
	if got[9] != ecp.Literal(':') {
		t.Errorf("got[9] = %v, want Lit_:", got[9])
	}

	if again := Decompose("Star Trek: Picard"); !reflect.DeepEqual(got, again) {
		t.Error("Decompose() is not stable across calls")
	}
}

func TestDecompose_GoodWitch(t *testing.T) {
	got := Decompose("Good Witch")
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	for _, c := range got {
		if !c.IsLiteral() {
			t.Errorf("%v is not a literal keypress", c)
		}
	}
}
