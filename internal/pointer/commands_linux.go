//go:build linux

package pointer

import (
	"image"
	"os/exec"
	"strconv"
	"strings"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
)

type xdotoolCommands struct{}

func platformCommands() (commandSet, error) {
	if _, err := exec.LookPath("xdotool"); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePointerFailed, "xdotool not found (install xdotool)")
	}
	return xdotoolCommands{}, nil
}

func (xdotoolCommands) move(pos image.Point) Command {
	return Command{Name: "xdotool", Args: []string{"mousemove", "--sync", strconv.Itoa(pos.X), strconv.Itoa(pos.Y)}}
}

func (xdotoolCommands) press() Command {
	return Command{Name: "xdotool", Args: []string{"mousedown", "1"}}
}

func (xdotoolCommands) release() Command {
	return Command{Name: "xdotool", Args: []string{"mouseup", "1"}}
}

func (xdotoolCommands) position() Command {
	return Command{Name: "xdotool", Args: []string{"getmouselocation", "--shell"}}
}

// parsePosition reads the --shell output: X=123, Y=456, one pair per line.
func (xdotoolCommands) parsePosition(out string) (image.Point, error) {
	var p image.Point
	seen := 0
	for _, line := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		switch k {
		case "X":
			p.X = n
			seen++
		case "Y":
			p.Y = n
			seen++
		}
	}
	if seen != 2 {
		return image.Point{}, apperrors.Newf(apperrors.CodePointerFailed, "unexpected xdotool output %q", out)
	}
	return p, nil
}
