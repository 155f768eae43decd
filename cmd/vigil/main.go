package main

import "os"

func main() {
	deps := defaultCommandDeps()
	cmd, rest := resolveCommand(os.Args[1:], deps)
	os.Exit(cmd.Run(rest))
}
