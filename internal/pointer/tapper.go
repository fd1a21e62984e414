// Package pointer injects synthetic mouse input through the platform's
// command line automation tool (xdotool on Linux, cliclick on macOS).
package pointer

import (
	"bytes"
	"context"
	"image"
	"os/exec"
	"strings"
	"time"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/resilience"
)

// Command is one invocation of the platform automation tool.
type Command struct {
	Name string
	Args []string
}

// commandSet builds the platform-specific commands for each pointer primitive.
type commandSet interface {
	move(pos image.Point) Command
	press() Command
	release() Command
	position() Command
	parsePosition(out string) (image.Point, error)
}

// Runner executes a command and returns its trimmed stdout.
type Runner func(ctx context.Context, c Command) (string, error)

func execRunner(ctx context.Context, c Command) (string, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", apperrors.Wrapf(err, apperrors.CodePointerFailed, "%s: %s", c.Name, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Tapper performs move-press-hold-release clicks. A circuit breaker guards
// the exec path: if the automation tool starts failing persistently the run
// aborts fast instead of hammering a broken binary for every remaining cell.
type Tapper struct {
	cmds    commandSet
	run     Runner
	breaker *resilience.Breaker
}

// NewTapper builds a tapper for the current platform. It fails if the
// platform automation tool is not installed.
func NewTapper() (*Tapper, error) {
	cmds, err := platformCommands()
	if err != nil {
		return nil, err
	}
	return &Tapper{
		cmds:    cmds,
		run:     execRunner,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{}),
	}, nil
}

// Tap moves the pointer to pos over the move duration, presses, holds, and
// releases.
func (t *Tapper) Tap(ctx context.Context, pos image.Point, move, hold time.Duration) error {
	return t.breaker.Execute(func() error {
		if _, err := t.run(ctx, t.cmds.move(pos)); err != nil {
			return err
		}
		if err := sleep(ctx, move); err != nil {
			return err
		}
		if _, err := t.run(ctx, t.cmds.press()); err != nil {
			return err
		}
		if err := sleep(ctx, hold); err != nil {
			return err
		}
		_, err := t.run(ctx, t.cmds.release())
		return err
	})
}

// Position returns the current pointer location.
func (t *Tapper) Position(ctx context.Context) (image.Point, error) {
	out, err := t.run(ctx, t.cmds.position())
	if err != nil {
		return image.Point{}, err
	}
	return t.cmds.parsePosition(out)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
