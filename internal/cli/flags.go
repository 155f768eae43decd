package cli

import (
	"flag"
	"strings"
)

const defaultHelpDesc = "Show help"

// AddHelpFlag registers -h and --help on a flag set.
func AddHelpFlag(fs *flag.FlagSet, desc string) *bool {
	help := new(bool)
	if fs == nil {
		return help
	}
	if desc == "" {
		desc = defaultHelpDesc
	}
	fs.BoolVar(help, "help", false, desc)
	fs.BoolVar(help, "h", false, desc)
	return help
}

// StringList collects repeatable string flags.
type StringList []string

func (list *StringList) String() string {
	if list == nil {
		return ""
	}
	return strings.Join(*list, ",")
}

func (list *StringList) Set(value string) error {
	*list = append(*list, value)
	return nil
}
