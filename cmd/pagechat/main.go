package main

import (
	"fmt"
	"os"
	"strings"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

type startupOptions struct {
	configPath  string
	prompt      string
	controlURL  string
	headless    bool
	headlessSet bool
	verbose     bool
	showVersion bool
	showHelp    bool
}

func main() {
	opts, err := parseStartupOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'pagechat --help' for usage.")
		os.Exit(exitUsage)
	}

	switch {
	case opts.showHelp:
		printUsage()
		return
	case opts.showVersion:
		fmt.Printf("pagechat %s (commit %s, built %s)\n", version, commit, buildDate)
		return
	}

	if err := run(opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "Error: %v\n", msg)
		}
		os.Exit(exitCodeForError(err))
	}
}

func parseStartupOptions(raw []string) (*startupOptions, error) {
	opts := &startupOptions{}
	if val, ok := parseBoolEnv("PAGECHAT_VERBOSE"); ok {
		opts.verbose = val
	}

	var nextPrompt, nextConfig, nextControlURL bool
	var positional []string

	for _, arg := range raw {
		switch {
		case nextPrompt:
			opts.prompt = arg
			nextPrompt = false
			continue
		case nextConfig:
			opts.configPath = arg
			nextConfig = false
			continue
		case nextControlURL:
			opts.controlURL = arg
			nextControlURL = false
			continue
		}

		switch arg {
		case "-p", "--prompt":
			nextPrompt = true
		case "-c", "--config":
			nextConfig = true
		case "--control-url":
			nextControlURL = true
		case "--headless":
			opts.headless = true
			opts.headlessSet = true
		case "--headful":
			opts.headless = false
			opts.headlessSet = true
		case "-v", "--verbose":
			opts.verbose = true
		case "--version":
			opts.showVersion = true
		case "-h", "--help":
			opts.showHelp = true
		default:
			switch {
			case strings.HasPrefix(arg, "--config="):
				opts.configPath = strings.TrimPrefix(arg, "--config=")
			case strings.HasPrefix(arg, "--control-url="):
				opts.controlURL = strings.TrimPrefix(arg, "--control-url=")
			case strings.HasPrefix(arg, "--prompt="):
				opts.prompt = strings.TrimPrefix(arg, "--prompt=")
			case strings.HasPrefix(arg, "-") && arg != "-":
				return nil, fmt.Errorf("unknown flag %s", arg)
			default:
				positional = append(positional, arg)
			}
		}
	}

	if nextPrompt {
		return nil, fmt.Errorf("-p requires a prompt argument")
	}
	if nextConfig {
		return nil, fmt.Errorf("--config requires a path argument")
	}
	if nextControlURL {
		return nil, fmt.Errorf("--control-url requires a URL argument")
	}
	if len(positional) > 0 {
		if opts.prompt != "" {
			return nil, fmt.Errorf("unexpected argument %q after -p", positional[0])
		}
		opts.prompt = strings.Join(positional, " ")
	}
	return opts, nil
}

func parseBoolEnv(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}

func printUsage() {
	fmt.Print(`pagechat - chat with a browser-hosted assistant from the terminal

Usage:
  pagechat [flags]            interactive session
  pagechat [flags] -p PROMPT  ask once and print the reply

Flags:
  -c, --config PATH       config file (default ~/.pagechat/config.yaml)
  -p, --prompt TEXT       one-shot prompt
      --control-url URL   attach to a running browser's DevTools endpoint
      --headless          launch the browser without a window
  -v, --verbose           show capture events and extraction source
      --version           print version information
  -h, --help              show this help

In an interactive session end a line with \ to continue it, and type
/quit to leave. Ctrl-C stops waiting on a reply; press it again to exit.
`)
}
