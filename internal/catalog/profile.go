package catalog

import (
	"time"

	"github.com/muurk/easyremote/internal/ecp"
)

// Timing shared by every app.
const (
	DefaultKeyDelay        = time.Second
	DefaultCharDelay       = 500 * time.Millisecond
	DefaultSearchSettle    = time.Second
	DefaultSearchMoveDelay = 500 * time.Millisecond
	DefaultConfirmInterval = 2 * time.Second
	DefaultConfirmPolls    = 5
	DefaultMaxRelaunches   = 2
	DefaultAwaitInterval   = 4 * time.Second
	DefaultAwaitPolls      = 15
)

// LiveExit is an exit whose back count depends on whether the app is in live
// playback when the exit starts.
type LiveExit struct {
	LiveBacks int
	IdleBacks int
	Gap       time.Duration
	Then      Recipe
}

// Backs returns the back count for the observed liveness.
func (l LiveExit) Backs(live bool) int {
	if live {
		return l.LiveBacks
	}
	return l.IdleBacks
}

// AppProfile is everything the sequencer needs to drive one app.
type AppProfile struct {
	App      AppID
	WarmUp   time.Duration // Pause after launch before PostLaunch
	KeyDelay time.Duration // Pause after each press unless the step sets Gap

	PostLaunch Recipe // From a fresh launch to the app's search/guide/list entry
	Navigate   Recipe // Default show recipe when the show does not set one
	Shortcut   Recipe // From anywhere in the running app back to the entry point
	Exit       Recipe // Leaves the app; ignored when LiveExit is set
	LiveExit   *LiveExit

	SearchMoves         int  // Right presses between the typed title and the result
	NoSelectAfterSearch bool // The result starts playing without a select
	ListPosition        int  // Default rows for list steps

	ConfirmLive     bool // Poll the media player after navigating
	ConfirmAbsent   bool // Success is the liveness marker going away rather than appearing
	ConfirmPolls    int
	ConfirmInterval time.Duration
	MaxRelaunches   int

	AwaitPolls    int
	AwaitInterval time.Duration

	KeepAlive bool // Poke with Up while playing to suppress idle prompts
}

// ExitRecipe returns the exit for the observed liveness.
func (p *AppProfile) ExitRecipe(live bool) Recipe {
	if p.LiveExit == nil {
		return p.Exit
	}
	out := Recipe{PressEvery(ecp.KeyBack, p.LiveExit.Backs(live), p.LiveExit.Gap)}
	return append(out, p.LiveExit.Then...)
}

func (p *AppProfile) clone() *AppProfile {
	c := *p
	if p.LiveExit != nil {
		le := *p.LiveExit
		c.LiveExit = &le
	}
	return &c
}

// DefaultProfiles returns the built-in profile of every known app.
func DefaultProfiles() map[AppID]*AppProfile {
	base := func(app AppID, warmUp time.Duration) *AppProfile {
		return &AppProfile{
			App:             app,
			WarmUp:          warmUp,
			KeyDelay:        DefaultKeyDelay,
			Exit:            MustParseRecipe("home"),
			ConfirmPolls:    DefaultConfirmPolls,
			ConfirmInterval: DefaultConfirmInterval,
			MaxRelaunches:   DefaultMaxRelaunches,
			AwaitPolls:      DefaultAwaitPolls,
			AwaitInterval:   DefaultAwaitInterval,
		}
	}

	netflix := base(AppNetflix, 15*time.Second)
	netflix.PostLaunch = MustParseRecipe("select", "wait 1s", "left", "down*5", "select")
	netflix.Navigate = MustParseRecipe("search")
	netflix.Shortcut = MustParseRecipe("back*3", "up*5", "select", "left", "down*5", "select")
	netflix.Exit = MustParseRecipe("back*3", "up*5", "select", "left", "up*4", "select", "home")
	netflix.SearchMoves = 5
	netflix.KeepAlive = true

	pluto := base(AppPluto, 0)
	pluto.PostLaunch = MustParseRecipe("await-live", "left", "down*2", "select", "down*2/2s", "right", "select", "select", "wait 4s")
	pluto.Shortcut = MustParseRecipe("back*2/2s", "left", "down*2", "select", "down*2/2s", "right", "select", "select", "wait 4s")
	pluto.LiveExit = &LiveExit{
		LiveBacks: 4,
		IdleBacks: 5,
		Gap:       2 * time.Second,
		Then:      MustParseRecipe("down", "select"),
	}
	pluto.NoSelectAfterSearch = true
	pluto.ConfirmLive = true

	paramount := base(AppParamount, 10*time.Second)
	paramount.PostLaunch = MustParseRecipe("right/2s", "select", "wait 4s", "left")
	paramount.Navigate = MustParseRecipe("down*7", "select", "wait 1s", "select", "wait 1s", "select")
	paramount.Shortcut = MustParseRecipe("back*2", "left", "up*10")
	paramount.SearchMoves = 6

	frndly := base(AppFrndly, 10*time.Second)
	frndly.Navigate = MustParseRecipe("down*list", "select", "select")
	frndly.Shortcut = MustParseRecipe("back*2", "up*20")
	frndly.ListPosition = 4

	youtube := base(AppYouTubeTV, 15*time.Second)
	youtube.PostLaunch = MustParseRecipe("right*2", "down")
	youtube.Navigate = MustParseRecipe("search", "right/2s", "select", "down", "select")
	youtube.Shortcut = MustParseRecipe("back*3", "right*2", "down")

	roku := base(AppRokuChannel, 8*time.Second)
	roku.Navigate = MustParseRecipe("down*list", "select")
	roku.Shortcut = MustParseRecipe("back*2")

	return map[AppID]*AppProfile{
		AppNetflix:     netflix,
		AppPluto:       pluto,
		AppParamount:   paramount,
		AppFrndly:      frndly,
		AppYouTubeTV:   youtube,
		AppRokuChannel: roku,
	}
}

// DefaultRebootRecipe walks Settings > System > System restart from the home
// screen.
func DefaultRebootRecipe() Recipe {
	return MustParseRecipe("home", "down*6", "right", "down*12", "right", "down*7", "right", "select")
}
