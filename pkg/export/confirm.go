package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// ConfirmOverwrite asks before replacing an existing file. A path that
// does not exist yet needs no confirmation.
func ConfirmOverwrite(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}

	overwrite := false
	form := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Overwrite it?", filepath.Base(path))).
				Description(path).
				Value(&overwrite).
				Affirmative("Overwrite").
				Negative("Keep existing"),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("overwrite prompt: %w", err)
	}
	return overwrite, nil
}
