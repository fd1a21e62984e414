package pointer

import (
	"context"
	"image"
	"strconv"
	"testing"
	"time"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
	"github.com/pixelbrush/pixelbrush/internal/resilience"
)

// fakeCommands records primitives in arg form so tests can assert ordering
// without a real automation tool.
type fakeCommands struct{}

func (fakeCommands) move(pos image.Point) Command {
	return Command{Name: "fake", Args: []string{"move", strconv.Itoa(pos.X), strconv.Itoa(pos.Y)}}
}
func (fakeCommands) press() Command    { return Command{Name: "fake", Args: []string{"press"}} }
func (fakeCommands) release() Command  { return Command{Name: "fake", Args: []string{"release"}} }
func (fakeCommands) position() Command { return Command{Name: "fake", Args: []string{"position"}} }
func (fakeCommands) parsePosition(out string) (image.Point, error) {
	xs, ys, _ := strconvCut(out)
	return image.Pt(xs, ys), nil
}

func strconvCut(out string) (int, int, error) {
	var x, y int
	for i := 0; i < len(out); i++ {
		if out[i] == ' ' {
			x, _ = strconv.Atoi(out[:i])
			y, _ = strconv.Atoi(out[i+1:])
			break
		}
	}
	return x, y, nil
}

func newTestTapper(run Runner) *Tapper {
	return &Tapper{cmds: fakeCommands{}, run: run, breaker: resilience.NewBreaker(resilience.BreakerConfig{Threshold: 3})}
}

func TestTapPrimitiveOrder(t *testing.T) {
	var ops []string
	tap := newTestTapper(func(ctx context.Context, c Command) (string, error) {
		ops = append(ops, c.Args[0])
		return "", nil
	})

	if err := tap.Tap(context.Background(), image.Pt(40, 50), time.Microsecond, time.Microsecond); err != nil {
		t.Fatal(err)
	}

	want := []string{"move", "press", "release"}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d = %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestTapBreakerOpensOnPersistentFailure(t *testing.T) {
	fail := apperrors.New(apperrors.CodePointerFailed, "injector broken")
	tap := newTestTapper(func(ctx context.Context, c Command) (string, error) {
		return "", fail
	})

	for i := 0; i < 3; i++ {
		if err := tap.Tap(context.Background(), image.Pt(0, 0), 0, 0); err == nil {
			t.Fatalf("tap %d succeeded, want failure", i)
		}
	}

	// Breaker is open now: calls fail fast without invoking the runner.
	err := tap.Tap(context.Background(), image.Pt(0, 0), 0, 0)
	if err != resilience.ErrOpen {
		t.Errorf("Tap = %v, want ErrOpen", err)
	}
}

func TestTapCancelledDuringHold(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ops []string
	tap := newTestTapper(func(ctx context.Context, c Command) (string, error) {
		ops = append(ops, c.Args[0])
		if c.Args[0] == "press" {
			cancel()
		}
		return "", nil
	})

	err := tap.Tap(ctx, image.Pt(0, 0), 0, time.Minute)
	if err != context.Canceled {
		t.Fatalf("Tap = %v, want context.Canceled", err)
	}
	for _, op := range ops {
		if op == "release" {
			t.Error("release ran after cancellation")
		}
	}
}

func TestPosition(t *testing.T) {
	tap := newTestTapper(func(ctx context.Context, c Command) (string, error) {
		if c.Args[0] != "position" {
			t.Errorf("unexpected command %v", c.Args)
		}
		return "120 340", nil
	})

	p, err := tap.Position(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if p != image.Pt(120, 340) {
		t.Errorf("Position = %v, want (120,340)", p)
	}
}

func TestCornerFailsafe(t *testing.T) {
	bounds := image.Rect(0, 0, 1920, 1080)

	tests := []struct {
		name string
		pos  image.Point
		want bool
	}{
		{"center", image.Pt(960, 540), false},
		{"top left corner", image.Pt(0, 0), true},
		{"top left inside margin", image.Pt(5, 5), true},
		{"top right corner", image.Pt(1919, 0), true},
		{"bottom left corner", image.Pt(2, 1079), true},
		{"bottom right corner", image.Pt(1919, 1079), true},
		{"left edge not corner", image.Pt(0, 540), false},
		{"top edge not corner", image.Pt(960, 0), false},
		{"just outside margin", image.Pt(6, 6), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := CornerFailsafe(func(ctx context.Context) (image.Point, error) {
				return tc.pos, nil
			}, bounds, 5)
			if got := fs(); got != tc.want {
				t.Errorf("failsafe at %v = %v, want %v", tc.pos, got, tc.want)
			}
		})
	}
}

func TestCornerFailsafeIgnoresReadErrors(t *testing.T) {
	fs := CornerFailsafe(func(ctx context.Context) (image.Point, error) {
		return image.Point{}, apperrors.New(apperrors.CodePointerFailed, "no display")
	}, image.Rect(0, 0, 100, 100), 5)
	if fs() {
		t.Error("failsafe triggered on position read error")
	}
}
