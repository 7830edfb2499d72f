package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/muurk/easyremote/internal/ecp"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		in   string
		want Step
	}{
		{"select", Press(ecp.KeySelect, 1)},
		{"Right*5", Press(ecp.KeyRight, 5)},
		{"back*4/2s", PressEvery(ecp.KeyBack, 4, 2*time.Second)},
		{"down*list", List(ecp.KeyDown)},
		{"wait 2s", Wait(2 * time.Second)},
		{"wait 500ms", Wait(500 * time.Millisecond)},
		{"type Good Witch", Type("Good Witch")},
		{"search", Search()},
		{"  await-live ", AwaitLive()},
		{"poweroff", Press(ecp.KeyPowerOff, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStep(tt.in)
			if err != nil {
				t.Fatalf("ParseStep(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseStep(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseStep_Invalid(t *testing.T) {
	tests := []struct {
		in      string
		wantErr string
	}{
		{"", "empty step"},
		{"jump", "unknown key"},
		{"down*0", "invalid repeat count"},
		{"down*x", "invalid repeat count"},
		{"down/fast", "invalid gap"},
		{"wait soon", "invalid wait"},
		{"type", "needs text"},
		{"select now", "unexpected text"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseStep(tt.in)
			if err == nil {
				t.Fatalf("ParseStep(%q) error = nil, want %q", tt.in, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ParseStep(%q) error = %v, want containing %q", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestStepString(t *testing.T) {
	for _, line := range []string{"select", "right*5", "back*4/2s", "down*list", "wait 2s", "type abc", "search", "await-live"} {
		step, err := ParseStep(line)
		if err != nil {
			t.Fatalf("ParseStep(%q) error = %v", line, err)
		}
		if got := step.String(); got != line {
			t.Errorf("String() = %q, want %q", got, line)
		}
	}
}

func TestParseRecipe(t *testing.T) {
	r, err := ParseRecipe([]string{"left", "down*5", "select"})
	if err != nil {
		t.Fatalf("ParseRecipe() error = %v", err)
	}
	if len(r) != 3 || r.Presses() != 7 {
		t.Errorf("recipe = %v, presses = %d, want 3 steps and 7 presses", r, r.Presses())
	}
	if r.String() != "left, down*5, select" {
		t.Errorf("String() = %q", r.String())
	}

	_, err = ParseRecipe([]string{"left", "sideways"})
	if err == nil || !strings.Contains(err.Error(), "step 2") {
		t.Errorf("ParseRecipe() error = %v, want error naming step 2", err)
	}
}

func TestMustParseRecipe_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseRecipe should panic on an invalid step")
		}
	}()
	MustParseRecipe("nope")
}
