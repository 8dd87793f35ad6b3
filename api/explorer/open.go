package explorer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/skratchdot/open-golang/open"
)

var ErrEmptyPath = errors.New("path is required")

// Starter hands a path to the desktop's default handler without waiting for
// it to exit.
type Starter func(path string) error

type Opener struct {
	start Starter
}

// NewOpener launches the platform file manager (explorer, open or xdg-open).
func NewOpener() *Opener {
	return &Opener{start: open.Start}
}

func NewOpenerWith(start Starter) *Opener {
	return &Opener{start: start}
}

// Open shows path in the host's file manager. The path is made absolute first
// so it can never be read as a launcher option.
func (o *Opener) Open(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrEmptyPath
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	if err := o.start(abs); err != nil {
		return fmt.Errorf("failed to open file explorer: %w", err)
	}
	return nil
}
