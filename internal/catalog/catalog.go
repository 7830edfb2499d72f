package catalog

import (
	"fmt"
	"sort"

	"github.com/muurk/easyremote/internal/config"
)

// NoButton marks a show without a keypad button.
const NoButton = -1

// Show is one catalog entry.
type Show struct {
	Name         string
	App          AppID
	Channel      string
	Color        uint32
	Button       int
	ListPosition int
	Recipe       Recipe
}

// Catalog is the immutable show table plus the per-app profiles.
type Catalog struct {
	shows    []Show
	byName   map[string]int
	profiles map[AppID]*AppProfile
	reboot   Recipe
}

// New builds a catalog from configuration: built-in profiles with the
// config's per-app tuning applied, and every show with its recipe resolved.
func New(cfg *config.Config) (*Catalog, error) {
	profiles := DefaultProfiles()
	for id, tuning := range cfg.Apps {
		if tuning == nil {
			continue
		}
		app := AppID(id)
		p, ok := profiles[app]
		if !ok {
			return nil, fmt.Errorf("apps: no built-in profile for app %d", id)
		}
		p = p.clone()
		applyTuning(p, tuning)
		profiles[app] = p
	}

	c := &Catalog{
		byName:   make(map[string]int, len(cfg.Shows)),
		profiles: profiles,
		reboot:   DefaultRebootRecipe(),
	}

	if len(cfg.Reboot) > 0 {
		r, err := ParseRecipe(cfg.Reboot)
		if err != nil {
			return nil, fmt.Errorf("reboot_recipe: %w", err)
		}
		c.reboot = r
	}

	for _, s := range cfg.Shows {
		show, err := c.buildShow(s)
		if err != nil {
			return nil, fmt.Errorf("show %q: %w", s.Name, err)
		}
		c.byName[show.Name] = len(c.shows)
		c.shows = append(c.shows, show)
	}
	return c, nil
}

func (c *Catalog) buildShow(s config.Show) (Show, error) {
	color, err := config.ParseColor(s.Color)
	if err != nil {
		return Show{}, err
	}

	app := AppID(s.App)
	profile, ok := c.profiles[app]
	if !ok {
		return Show{}, fmt.Errorf("no profile for app %d", s.App)
	}

	show := Show{
		Name:         s.Name,
		App:          app,
		Channel:      s.Channel,
		Color:        color,
		Button:       NoButton,
		ListPosition: s.ListPosition,
		Recipe:       profile.Navigate,
	}
	if show.Channel == "" {
		show.Channel = app.String()
	}
	if s.Button != nil {
		show.Button = *s.Button
	}
	if show.ListPosition == 0 {
		show.ListPosition = profile.ListPosition
	}
	if len(s.Recipe) > 0 {
		r, err := ParseRecipe(s.Recipe)
		if err != nil {
			return Show{}, err
		}
		show.Recipe = r
	}
	return show, nil
}

func applyTuning(p *AppProfile, t *config.AppTuning) {
	if t.SearchMoves != nil {
		p.SearchMoves = *t.SearchMoves
	}
	if t.WarmUp > 0 {
		p.WarmUp = t.WarmUp.D()
	}
	if t.ConfirmPolls > 0 {
		p.ConfirmPolls = t.ConfirmPolls
	}
	if t.MaxRelaunches != nil {
		p.MaxRelaunches = *t.MaxRelaunches
	}
	if t.ConfirmAbsent {
		p.ConfirmAbsent = true
	}
}

// Show looks up a show by name.
func (c *Catalog) Show(name string) (Show, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Show{}, false
	}
	return c.shows[i], true
}

// Shows returns every show in configuration order.
func (c *Catalog) Shows() []Show {
	out := make([]Show, len(c.shows))
	copy(out, c.shows)
	return out
}

// ShowsForApp returns the shows owned by app, in configuration order.
func (c *Catalog) ShowsForApp(app AppID) []Show {
	var out []Show
	for _, s := range c.shows {
		if s.App == app {
			out = append(out, s)
		}
	}
	return out
}

// FirstShowForApp returns the first configured show owned by app.
func (c *Catalog) FirstShowForApp(app AppID) (Show, bool) {
	for _, s := range c.shows {
		if s.App == app {
			return s, true
		}
	}
	return Show{}, false
}

// Profile returns the profile for app.
func (c *Catalog) Profile(app AppID) (*AppProfile, bool) {
	p, ok := c.profiles[app]
	return p, ok
}

// Known reports whether app has a profile, i.e. the sequencer knows how to
// exit it.
func (c *Catalog) Known(app AppID) bool {
	_, ok := c.profiles[app]
	return ok
}

// Apps returns the apps with a profile, sorted by id.
func (c *Catalog) Apps() []AppID {
	out := make([]AppID, 0, len(c.profiles))
	for app := range c.profiles {
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RebootRecipe returns the settings-menu walk that restarts a device.
func (c *Catalog) RebootRecipe() Recipe {
	return c.reboot
}
