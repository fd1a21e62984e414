//go:build darwin

package pointer

import (
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	apperrors "github.com/pixelbrush/pixelbrush/internal/errors"
)

type cliclickCommands struct{}

func platformCommands() (commandSet, error) {
	if _, err := exec.LookPath("cliclick"); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePointerFailed, "cliclick not found (brew install cliclick)")
	}
	return cliclickCommands{}, nil
}

func (cliclickCommands) move(pos image.Point) Command {
	return Command{Name: "cliclick", Args: []string{fmt.Sprintf("m:%d,%d", pos.X, pos.Y)}}
}

func (cliclickCommands) press() Command {
	return Command{Name: "cliclick", Args: []string{"dd:."}}
}

func (cliclickCommands) release() Command {
	return Command{Name: "cliclick", Args: []string{"du:."}}
}

func (cliclickCommands) position() Command {
	return Command{Name: "cliclick", Args: []string{"p"}}
}

// parsePosition reads cliclick p output: "123,456".
func (cliclickCommands) parsePosition(out string) (image.Point, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(out), ",")
	if !ok {
		return image.Point{}, apperrors.Newf(apperrors.CodePointerFailed, "unexpected cliclick output %q", out)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return image.Point{}, apperrors.Newf(apperrors.CodePointerFailed, "unexpected cliclick output %q", out)
	}
	return image.Pt(x, y), nil
}
