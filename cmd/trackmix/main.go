package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/liuscraft/trackmix/internal/logging"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
