package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/easyremote/internal/ecp"
)

// StepKind is the type of one navigation step.
type StepKind int

const (
	// StepPress presses Key Count times.
	StepPress StepKind = iota
	// StepType types Text one character at a time.
	StepType
	// StepSearch types the show title, then moves to and selects the result.
	StepSearch
	// StepWait pauses for Wait.
	StepWait
	// StepAwaitLive polls the media player until live playback starts.
	StepAwaitLive
	// StepList presses Key once per row of the show's list position.
	StepList
)

// String returns the keyword used in recipe text.
func (k StepKind) String() string {
	switch k {
	case StepPress:
		return "press"
	case StepType:
		return "type"
	case StepSearch:
		return "search"
	case StepWait:
		return "wait"
	case StepAwaitLive:
		return "await-live"
	case StepList:
		return "list"
	default:
		return fmt.Sprintf("StepKind(%d)", k)
	}
}

// Step is one abstract remote action.
type Step struct {
	Kind  StepKind
	Key   ecp.Key
	Count int
	Text  string
	Wait  time.Duration
	Gap   time.Duration // Pause after each press; zero means the profile's KeyDelay
}

// Press returns a step pressing k n times.
func Press(k ecp.Key, n int) Step {
	return Step{Kind: StepPress, Key: k, Count: n}
}

// PressEvery returns a step pressing k n times with gap after each press.
func PressEvery(k ecp.Key, n int, gap time.Duration) Step {
	return Step{Kind: StepPress, Key: k, Count: n, Gap: gap}
}

// Wait returns a pause step.
func Wait(d time.Duration) Step {
	return Step{Kind: StepWait, Wait: d}
}

// Type returns a step typing text literally.
func Type(text string) Step {
	return Step{Kind: StepType, Text: text}
}

// Search returns the search-for-title step.
func Search() Step {
	return Step{Kind: StepSearch}
}

// AwaitLive returns the wait-for-live-playback step.
func AwaitLive() Step {
	return Step{Kind: StepAwaitLive}
}

// List returns a step pressing k once per row of the show's list position.
func List(k ecp.Key) Step {
	return Step{Kind: StepList, Key: k}
}

// String renders the step in the syntax ParseStep accepts.
func (s Step) String() string {
	switch s.Kind {
	case StepWait:
		return "wait " + s.Wait.String()
	case StepType:
		return "type " + s.Text
	case StepSearch:
		return "search"
	case StepAwaitLive:
		return "await-live"
	}

	out := strings.ToLower(string(s.Key))
	switch {
	case s.Kind == StepList:
		out += "*list"
	case s.Count > 1:
		out += "*" + strconv.Itoa(s.Count)
	}
	if s.Gap > 0 {
		out += "/" + s.Gap.String()
	}
	return out
}

// ParseStep parses one recipe line:
//
//	select            one press
//	down*5            five presses
//	back*4/2s         four presses, 2s apart
//	down*list         one press per row of the show's list position
//	wait 2s
//	type abc
//	search
//	await-live
func ParseStep(s string) (Step, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Step{}, fmt.Errorf("empty step")
	}

	head, rest, _ := strings.Cut(s, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(head) {
	case "wait":
		d, err := time.ParseDuration(rest)
		if err != nil || d < 0 {
			return Step{}, fmt.Errorf("invalid wait %q", rest)
		}
		return Wait(d), nil
	case "type":
		if rest == "" {
			return Step{}, fmt.Errorf("type step needs text")
		}
		return Type(rest), nil
	case "search":
		return Search(), nil
	case "await-live":
		return AwaitLive(), nil
	}
	if rest != "" {
		return Step{}, fmt.Errorf("unexpected text after %q", head)
	}

	var gap time.Duration
	if k, g, ok := strings.Cut(head, "/"); ok {
		d, err := time.ParseDuration(g)
		if err != nil || d <= 0 {
			return Step{}, fmt.Errorf("invalid gap %q", g)
		}
		head, gap = k, d
	}

	name, count, hasCount := strings.Cut(head, "*")
	key, ok := ecp.ParseKey(name)
	if !ok {
		return Step{}, fmt.Errorf("unknown key %q", name)
	}
	if !hasCount {
		return PressEvery(key, 1, gap), nil
	}
	if strings.EqualFold(count, "list") {
		step := List(key)
		step.Gap = gap
		return step, nil
	}
	n, err := strconv.Atoi(count)
	if err != nil || n < 1 {
		return Step{}, fmt.Errorf("invalid repeat count %q", count)
	}
	return PressEvery(key, n, gap), nil
}

// Recipe is an ordered list of steps.
type Recipe []Step

// ParseRecipe parses recipe lines. Errors name the failing line.
func ParseRecipe(lines []string) (Recipe, error) {
	out := make(Recipe, 0, len(lines))
	for i, line := range lines {
		step, err := ParseStep(line)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		out = append(out, step)
	}
	return out, nil
}

// MustParseRecipe is ParseRecipe for built-in recipes; it panics on error.
func MustParseRecipe(lines ...string) Recipe {
	r, err := ParseRecipe(lines)
	if err != nil {
		panic(err)
	}
	return r
}

// Strings renders the recipe one step per element.
func (r Recipe) Strings() []string {
	out := make([]string, len(r))
	for i, s := range r {
		out[i] = s.String()
	}
	return out
}

// String renders the recipe on one line.
func (r Recipe) String() string {
	return strings.Join(r.Strings(), ", ")
}

// Presses counts the keypresses the recipe sends, excluding typed text and
// list steps.
func (r Recipe) Presses() int {
	n := 0
	for _, s := range r {
		if s.Kind == StepPress {
			n += s.Count
		}
	}
	return n
}
