package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// writePID records the current process id at path so toggle signals can be
// routed to the right process (e.g. by a keybinding shell script running
// `kill -USR1 $(cat path)`).
func writePID(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// readPID returns the pid recorded at path, or 0 if the file doesn't exist
// or doesn't contain a valid pid.
func readPID(path string) int {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0
	}
	return pid
}

// removePID deletes the pid file. Idempotent: removing an already-absent
// file is not an error.
func removePID(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}
