package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitFindings = 2
)

func main() {
	os.Exit(exitCode(Execute()))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errFindings):
		return exitFindings
	case errors.Is(err, errNoTargets):
		return exitError
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitError
}
