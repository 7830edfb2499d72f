package scheduler

import (
	"fmt"
	"time"

	"github.com/muurk/easyremote/internal/config"
)

// Rule actions.
const (
	ActionStart  = "start"
	ActionStop   = "stop"
	ActionReboot = "reboot"
)

// Rule is a time-of-day action on one device. It fires at most once per
// calendar day of its scheduled time.
type Rule struct {
	Name   string
	Device string
	At     config.TimeOfDay
	Action string
	Show   string

	lastFired string // "2006-01-02" of the last occurrence fired
}

const dateLayout = "2006-01-02"

// Due reports whether the rule should fire at now given the firing window.
// It returns the date of the occurrence that is due. An occurrence is due
// from its scheduled time until window later, which may run past midnight.
func (r *Rule) Due(now time.Time, window time.Duration) (string, bool) {
	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		at := r.At.On(day)
		if now.Before(at) || !now.Before(at.Add(window)) {
			continue
		}
		date := at.Format(dateLayout)
		if date == r.lastFired {
			continue
		}
		return date, true
	}
	return "", false
}

// MarkFired records that the occurrence on date has fired.
func (r *Rule) MarkFired(date string) {
	r.lastFired = date
}

// LastFired returns the date of the last fired occurrence, or "".
func (r *Rule) LastFired() string {
	return r.lastFired
}

// RulesFromSchedule expands the configured daily plans into rules: an
// optional reboot RebootLead before start, the start itself and the stop.
func RulesFromSchedule(schedule []config.Schedule) []*Rule {
	var rules []*Rule
	for _, s := range schedule {
		if s.Start != nil {
			if s.Reboot {
				rules = append(rules, &Rule{
					Name:   fmt.Sprintf("%s reboot", s.Device),
					Device: s.Device,
					At:     s.Start.Add(-s.RebootLead.D()),
					Action: ActionReboot,
				})
			}
			rules = append(rules, &Rule{
				Name:   fmt.Sprintf("%s start", s.Device),
				Device: s.Device,
				At:     *s.Start,
				Action: ActionStart,
				Show:   s.Show,
			})
		}
		if s.Stop != nil {
			rules = append(rules, &Rule{
				Name:   fmt.Sprintf("%s stop", s.Device),
				Device: s.Device,
				At:     *s.Stop,
				Action: ActionStop,
			})
		}
	}
	return rules
}
