package mux

import (
	"fmt"
	"os/exec"
)

// Detect returns a tmux multiplexer if the executable is on PATH.
func Detect(bin string) (Multiplexer, error) {
	if bin == "" {
		bin = "tmux"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("no supported terminal multiplexer detected (install %s): %w", bin, err)
	}
	return NewTmux(bin), nil
}
