package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"vigil/internal/cli"
	"vigil/internal/command"
	"vigil/internal/config"
)

type Config struct {
	Root        string
	Include     []string
	Exclude     []string
	Commands    command.Commands
	Debounce    time.Duration
	Listen      string
	AuthToken   string
	MaxWatches  int
	MaxProcs    int
	Output      command.OutputMode
	Verbose     bool
	Quiet       bool
	ShowVersion bool
	ConfigPath  string
	Sources     map[string]configSource
}

type configSource string

const (
	sourceDefault configSource = "default"
	sourceFile    configSource = "file"
	sourceEnv     configSource = "env"
	sourceFlag    configSource = "flag"
)

type configDefaults struct {
	Root       string
	Debounce   time.Duration
	Listen     string
	MaxWatches int
	MaxProcs   int
	Output     string
}

func defaultConfigValues() configDefaults {
	return configDefaults{
		Root:       ".",
		Debounce:   300 * time.Millisecond,
		Listen:     "",
		MaxWatches: 4096,
		MaxProcs:   8,
		Output:     string(command.OutputPassthrough),
	}
}

type flagValues struct {
	Dir        string
	Include    cli.StringList
	Exclude    cli.StringList
	OnCreate   string
	OnModify   string
	OnDelete   string
	OnChange   string
	Debounce   time.Duration
	Config     string
	Listen     string
	Token      string
	MaxWatches int
	MaxProcs   int
	Output     string
	Verbose    bool
	Quiet      bool
	Help       bool
	Version    bool
	Set        map[string]bool
}

func loadConfig(args []string) (Config, error) {
	defaults := defaultConfigValues()
	flags, err := parseFlags(args, defaults)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Sources: make(map[string]configSource),
	}
	cfg.ShowVersion = flags.Version

	configPath := flags.Config
	if configPath == "" {
		configPath = strings.TrimSpace(os.Getenv("VIGIL_CONFIG"))
	}
	var file config.File
	if configPath != "" {
		file, err = config.Load(configPath)
		if err != nil {
			return Config{}, err
		}
		cfg.ConfigPath = configPath
	}

	cfg.Root, cfg.Sources["root"] = pickString(defaults.Root, file.Root, "VIGIL_ROOT", flags.Dir, flags.Dir != "")
	cfg.Include, cfg.Sources["include"] = pickStrings(file.Include, "VIGIL_INCLUDE", flags.Include, flags.Set["include"])
	cfg.Exclude, cfg.Sources["exclude"] = pickStrings(file.Exclude, "VIGIL_EXCLUDE", flags.Exclude, flags.Set["exclude"])

	cfg.Commands.OnCreate, cfg.Sources["on-create"] = pickString("", file.OnCreate, "VIGIL_ON_CREATE", flags.OnCreate, flags.Set["on-create"])
	cfg.Commands.OnModify, cfg.Sources["on-modify"] = pickString("", file.OnModify, "VIGIL_ON_MODIFY", flags.OnModify, flags.Set["on-modify"])
	cfg.Commands.OnDelete, cfg.Sources["on-delete"] = pickString("", file.OnDelete, "VIGIL_ON_DELETE", flags.OnDelete, flags.Set["on-delete"])
	cfg.Commands.OnChange, cfg.Sources["on-change"] = pickString("", file.OnChange, "VIGIL_ON_CHANGE", flags.OnChange, flags.Set["on-change"])

	fileDebounce, fileDebounceSet := file.DebounceDuration()
	cfg.Debounce, cfg.Sources["debounce"] = pickDuration(defaults.Debounce, fileDebounce, fileDebounceSet, "VIGIL_DEBOUNCE", flags.Debounce, flags.Set["debounce"])
	if cfg.Debounce < 0 {
		return Config{}, fmt.Errorf("invalid --debounce: must be >= 0")
	}

	cfg.Listen, cfg.Sources["listen"] = pickString(defaults.Listen, file.Listen, "VIGIL_LISTEN", flags.Listen, flags.Set["listen"])
	cfg.AuthToken, cfg.Sources["token"] = pickString("", file.Token, "VIGIL_TOKEN", flags.Token, flags.Set["token"])

	cfg.MaxWatches, cfg.Sources["max-watches"] = pickInt(defaults.MaxWatches, file.MaxWatches, "VIGIL_MAX_WATCHES", flags.MaxWatches, flags.Set["max-watches"])
	if cfg.MaxWatches <= 0 {
		return Config{}, fmt.Errorf("invalid --max-watches: must be > 0")
	}
	cfg.MaxProcs, cfg.Sources["max-procs"] = pickInt(defaults.MaxProcs, file.MaxProcs, "VIGIL_MAX_PROCS", flags.MaxProcs, flags.Set["max-procs"])
	if cfg.MaxProcs <= 0 {
		return Config{}, fmt.Errorf("invalid --max-procs: must be > 0")
	}

	rawOutput, outputSource := pickString(defaults.Output, file.Output, "VIGIL_OUTPUT", flags.Output, flags.Set["output"])
	output, ok := command.ParseOutputMode(rawOutput)
	if !ok {
		return Config{}, fmt.Errorf("invalid --output %q: want passthrough or suppress", rawOutput)
	}
	cfg.Output = output
	cfg.Sources["output"] = outputSource

	cfg.Verbose, cfg.Sources["verbose"] = pickBool(false, "VIGIL_VERBOSE", flags.Verbose, flags.Set["verbose"])
	cfg.Quiet, cfg.Sources["quiet"] = pickBool(false, "VIGIL_QUIET", flags.Quiet, flags.Set["quiet"])

	return cfg, nil
}

func pickString(def, fileValue, envKey, flagValue string, flagSet bool) (string, configSource) {
	value, source := def, sourceDefault
	if fileValue != "" {
		value, source = fileValue, sourceFile
	}
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		value, source = raw, sourceEnv
	}
	if flagSet {
		value, source = flagValue, sourceFlag
	}
	return value, source
}

func pickStrings(fileValue []string, envKey string, flagValue []string, flagSet bool) ([]string, configSource) {
	value, source := []string(nil), sourceDefault
	if len(fileValue) > 0 {
		value, source = fileValue, sourceFile
	}
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		parts := []string{}
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			value, source = parts, sourceEnv
		}
	}
	if flagSet && len(flagValue) > 0 {
		value, source = flagValue, sourceFlag
	}
	return value, source
}

func pickInt(def, fileValue int, envKey string, flagValue int, flagSet bool) (int, configSource) {
	value, source := def, sourceDefault
	if fileValue != 0 {
		value, source = fileValue, sourceFile
	}
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			value, source = parsed, sourceEnv
		}
	}
	if flagSet {
		value, source = flagValue, sourceFlag
	}
	return value, source
}

func pickDuration(def, fileValue time.Duration, fileSet bool, envKey string, flagValue time.Duration, flagSet bool) (time.Duration, configSource) {
	value, source := def, sourceDefault
	if fileSet {
		value, source = fileValue, sourceFile
	}
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			value, source = parsed, sourceEnv
		}
	}
	if flagSet {
		value, source = flagValue, sourceFlag
	}
	return value, source
}

func pickBool(def bool, envKey string, flagValue, flagSet bool) (bool, configSource) {
	value, source := def, sourceDefault
	if raw := strings.TrimSpace(os.Getenv(envKey)); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			value, source = parsed, sourceEnv
		}
	}
	if flagSet {
		value, source = flagValue, sourceFlag
	}
	return value, source
}

func parseFlags(args []string, defaults configDefaults) (flagValues, error) {
	if args == nil {
		args = []string{}
	}
	fs := flag.NewFlagSet("vigil", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	flags := flagValues{}
	fs.Var(&flags.Include, "include", "Glob pattern for paths to watch (repeatable)")
	fs.Var(&flags.Include, "i", "Glob pattern for paths to watch (repeatable)")
	fs.Var(&flags.Exclude, "exclude", "Glob pattern for paths to ignore (repeatable)")
	fs.Var(&flags.Exclude, "e", "Glob pattern for paths to ignore (repeatable)")
	fs.StringVar(&flags.OnCreate, "on-create", "", "Command template for created files")
	fs.StringVar(&flags.OnModify, "on-modify", "", "Command template for modified files")
	fs.StringVar(&flags.OnDelete, "on-delete", "", "Command template for deleted files")
	fs.StringVar(&flags.OnChange, "on-change", "", "Fallback command template for any change")
	fs.DurationVar(&flags.Debounce, "debounce", defaults.Debounce, "Per-path quiet window (0 disables)")
	fs.StringVar(&flags.Config, "config", "", "YAML config file")
	fs.StringVar(&flags.Listen, "listen", defaults.Listen, "Address for the status/event feed server")
	fs.StringVar(&flags.Token, "token", "", "Auth token for the feed server")
	fs.IntVar(&flags.MaxWatches, "max-watches", defaults.MaxWatches, "Max directory watches")
	fs.IntVar(&flags.MaxProcs, "max-procs", defaults.MaxProcs, "Max concurrent commands")
	fs.StringVar(&flags.Output, "output", defaults.Output, "Command output mode: passthrough or suppress")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.Verbose, "v", false, "Enable verbose logging")
	fs.BoolVar(&flags.Quiet, "quiet", false, "Reduce logging to warnings")
	fs.BoolVar(&flags.Quiet, "q", false, "Reduce logging to warnings")
	fs.BoolVar(&flags.Version, "version", false, "Print version and exit")
	help := cli.AddHelpFlag(fs, "Show help")

	fs.Usage = func() {
		printHelp(fs.Output())
	}

	if err := fs.Parse(args); err != nil {
		return flagValues{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[canonicalFlagName(f.Name)] = true
	})
	flags.Set = set
	flags.Help = *help

	if flags.Help {
		fs.SetOutput(os.Stdout)
		fs.Usage()
		return flags, flag.ErrHelp
	}

	if fs.NArg() > 1 {
		return flagValues{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args()[1:], " "))
	}
	flags.Dir = fs.Arg(0)

	return flags, nil
}

func canonicalFlagName(name string) string {
	switch name {
	case "i":
		return "include"
	case "e":
		return "exclude"
	case "v":
		return "verbose"
	case "q":
		return "quiet"
	case "h":
		return "help"
	default:
		return name
	}
}

type helpOption struct {
	Name string
	Desc string
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "vigil watches a directory and runs commands when files change.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  vigil [DIRECTORY] [flags]")
	fmt.Fprintln(out, "  vigil config validate FILE")
	fmt.Fprintln(out, "  vigil version")

	writeOptionGroup(out, "File Filtering", []helpOption{
		{"-i, --include PATTERN", "Only react to matching paths (repeatable; default: all)"},
		{"-e, --exclude PATTERN", "Ignore matching paths (repeatable; wins over includes)"},
	})
	writeOptionGroup(out, "Command Execution", []helpOption{
		{"--on-create CMD", "Run when a file is created"},
		{"--on-modify CMD", "Run when a file is modified"},
		{"--on-delete CMD", "Run when a file is deleted"},
		{"--on-change CMD", "Fallback for kinds without their own command"},
		{"--max-procs N", "Max commands running at once (default 8)"},
		{"--output MODE", "Child output: passthrough or suppress"},
	})
	writeOptionGroup(out, "Event Feed", []helpOption{
		{"--listen ADDR", "Serve /api/events, /api/status, /metrics on ADDR"},
		{"--token TOKEN", "Require a bearer token on the feed"},
	})
	writeOptionGroup(out, "General Options", []helpOption{
		{"--debounce DURATION", "Per-path quiet window, e.g. 300ms (0 disables)"},
		{"--config FILE", "Load settings from a YAML file"},
		{"--max-watches N", "Max directory watches (default 4096)"},
		{"-v, --verbose", "Enable verbose logging"},
		{"-q, --quiet", "Reduce logging to warnings"},
		{"--version", "Print version and exit"},
		{"-h, --help", "Show help"},
	})

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Templates may use {file_path}, {relative_path}, {absolute_path}, {event_type}.")
	fmt.Fprintln(out, "Settings resolve flag > environment (VIGIL_*) > config file > default.")
}

func writeOptionGroup(out io.Writer, title string, options []helpOption) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", title)
	for _, option := range options {
		fmt.Fprintf(out, "  %-24s %s\n", option.Name, option.Desc)
	}
}
