package sequencer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/ecp"
	"github.com/muurk/easyremote/internal/logging"
)

// session is one operation on one device: the show being driven to and the
// profile of the app being driven.
type session struct {
	c       *RemoteController
	dev     config.Device
	show    catalog.Show
	profile *catalog.AppProfile
	log     *zap.Logger

	announce bool // Show DeviceStarting rather than NowPlaying
}

func (s *session) transition(from, to string, fields ...zap.Field) {
	logging.LogTransition(s.dev.Name, from, to, fields...)
}

// send issues one command. Transport failures come back to the caller, who
// for keypresses ignores them: a failed command is one that never happened.
func (s *session) send(ctx context.Context, cmd ecp.Command) (string, error) {
	return s.c.sender.Send(ctx, s.dev.Addr(), cmd)
}

func (s *session) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return s.c.clock.Sleep(ctx, d)
}

// press sends key n times with gap after each press (the profile's KeyDelay
// when gap is zero). Only context errors stop it.
func (s *session) press(ctx context.Context, key ecp.Key, n int, gap time.Duration) error {
	if gap <= 0 {
		gap = s.profile.KeyDelay
	}
	for i := 0; i < n; i++ {
		_, _ = s.send(ctx, ecp.Keypress(key))
		if err := s.sleep(ctx, gap); err != nil {
			return err
		}
	}
	return nil
}

// literal types commands with the character delay between them.
func (s *session) literal(ctx context.Context, cmds []ecp.Command) error {
	for _, cmd := range cmds {
		_, _ = s.send(ctx, cmd)
		if err := s.sleep(ctx, catalog.DefaultCharDelay); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) run(ctx context.Context, recipe catalog.Recipe) error {
	for _, step := range recipe {
		if err := s.step(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) step(ctx context.Context, step catalog.Step) error {
	switch step.Kind {
	case catalog.StepPress:
		return s.press(ctx, step.Key, step.Count, step.Gap)
	case catalog.StepList:
		rows := s.show.ListPosition
		if rows == 0 {
			rows = s.profile.ListPosition
		}
		return s.press(ctx, step.Key, rows, step.Gap)
	case catalog.StepWait:
		return s.sleep(ctx, step.Wait)
	case catalog.StepType:
		var cmds []ecp.Command
		for _, r := range step.Text {
			cmds = append(cmds, ecp.Literal(r))
		}
		return s.literal(ctx, cmds)
	case catalog.StepSearch:
		return s.search(ctx)
	case catalog.StepAwaitLive:
		return s.awaitLive(ctx)
	}
	return nil
}

// search types the show title, then moves to the result and selects it.
func (s *session) search(ctx context.Context) error {
	if err := s.literal(ctx, catalog.Decompose(s.show.Name)); err != nil {
		return err
	}
	if err := s.sleep(ctx, catalog.DefaultSearchSettle); err != nil {
		return err
	}
	if err := s.press(ctx, ecp.KeyRight, s.profile.SearchMoves, catalog.DefaultSearchMoveDelay); err != nil {
		return err
	}
	if s.profile.NoSelectAfterSearch {
		return s.sleep(ctx, s.profile.KeyDelay)
	}
	return s.press(ctx, ecp.KeySelect, 1, 0)
}

// awaitLive polls the media player until live playback starts or the polls
// run out. Running out is logged, not fatal: navigation carries on blind.
func (s *session) awaitLive(ctx context.Context) error {
	for i := 0; i < s.profile.AwaitPolls; i++ {
		body, err := s.send(ctx, ecp.QueryMediaPlayer)
		if err == nil && ecp.IsLive(body, s.c.markers...) {
			s.log.Debug("Live playback started", zap.Int("polls", i+1))
			return nil
		}
		if err := s.sleep(ctx, s.profile.AwaitInterval); err != nil {
			return err
		}
	}
	s.log.Warn("Live playback never started, continuing", zap.Int("polls", s.profile.AwaitPolls))
	return nil
}

// launchApp launches the show's app, waits out the warm-up and runs the
// post-launch recipe.
func (s *session) launchApp(ctx context.Context) error {
	_, _ = s.send(ctx, ecp.Launch(int(s.show.App)))
	if err := s.sleep(ctx, s.profile.WarmUp); err != nil {
		return err
	}
	return s.run(ctx, s.profile.PostLaunch)
}

// confirmed reports whether a media-player response shows the expected
// liveness.
func (s *session) confirmed(body string) bool {
	return ecp.IsLive(body, s.c.markers...) != s.profile.ConfirmAbsent
}

// confirm polls the media player for the expected liveness. After each round
// of ConfirmPolls without it the show is relaunched, at most MaxRelaunches
// times.
func (s *session) confirm(ctx context.Context) error {
	for relaunch := 0; ; relaunch++ {
		for poll := 0; poll < s.profile.ConfirmPolls; poll++ {
			if err := s.sleep(ctx, s.profile.ConfirmInterval); err != nil {
				return err
			}
			body, err := s.send(ctx, ecp.QueryMediaPlayer)
			if err == nil && s.confirmed(body) {
				s.log.Info("Playback confirmed", zap.Int("relaunches", relaunch))
				return nil
			}
		}
		if relaunch >= s.profile.MaxRelaunches {
			return ErrConfirmationTimeout
		}

		s.log.Warn("Playback not confirmed, relaunching", zap.Int("relaunch", relaunch+1))
		if err := s.launchApp(ctx); err != nil {
			return err
		}
		if err := s.run(ctx, s.show.Recipe); err != nil {
			return err
		}
	}
}
