package main

import (
	"fmt"
	"io"

	"vigil/internal/command"
	"vigil/internal/config"
	"vigil/internal/filter"
)

// runValidateConfig parses a config file and checks that its globs compile
// and its command templates tokenize, without starting a watcher.
func runValidateConfig(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "usage: vigil config validate FILE")
		return 1
	}

	file, err := config.Load(args[0])
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	if _, err := filter.New(file.Include, file.Exclude); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	commands := command.Commands{
		OnCreate: file.OnCreate,
		OnModify: file.OnModify,
		OnDelete: file.OnDelete,
		OnChange: file.OnChange,
	}
	if err := commands.Validate(); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	fmt.Fprintf(out, "%s: OK\n", args[0])
	return 0
}
