package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err.Error()))
		var exitErr *ExitCodeError
		if errors.As(err, &exitErr) && exitErr.Code != 0 {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
