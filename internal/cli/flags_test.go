package cli

import (
	"flag"
	"io"
	"testing"
)

func TestAddHelpFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	help := AddHelpFlag(fs, "")

	if err := fs.Parse([]string{"-h"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !*help {
		t.Fatal("expected -h to set help")
	}

	fs = flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	help = AddHelpFlag(fs, "")
	if err := fs.Parse([]string{"--help"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !*help {
		t.Fatal("expected --help to set help")
	}
}

func TestStringListCollectsValues(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var patterns StringList
	fs.Var(&patterns, "include", "include pattern")

	if err := fs.Parse([]string{"-include", "*.rs", "-include", "*.toml"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(patterns) != 2 || patterns[0] != "*.rs" || patterns[1] != "*.toml" {
		t.Fatalf("unexpected patterns %v", patterns)
	}
}
