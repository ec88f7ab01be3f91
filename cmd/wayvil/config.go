package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wayvil/wayvil/internal/config"
)

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: wayvil config <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  validate    Validate the config file")
	fmt.Fprintln(w, "  print       Print the effective configuration as YAML")
}

func runConfig(args []string) int {
	if len(args) == 0 {
		printConfigUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:])
	case "print":
		return runConfigPrint(args[1:])
	case "help", "-h", "--help":
		printConfigUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n\n", args[0])
		printConfigUsage(os.Stderr)
		return 2
	}
}

func loadConfigArg(fs *flag.FlagSet, args []string) (*config.Config, error) {
	path := fs.String("config", "", "Path to config file (default: ~/.config/wayvil/config.yaml)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *path != "" {
		return config.LoadFromPath(*path)
	}
	return config.Load()
}

func runConfigValidate(args []string) int {
	fs := flag.NewFlagSet("config validate", flag.ExitOnError)
	if _, err := loadConfigArg(fs, args); err != nil {
		fmt.Fprintf(os.Stderr, "Config invalid: %v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stdout, "Config OK")
	return 0
}

func runConfigPrint(args []string) int {
	fs := flag.NewFlagSet("config print", flag.ExitOnError)
	cfg, err := loadConfigArg(fs, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal config: %v\n", err)
		return 1
	}
	os.Stdout.Write(out)
	return 0
}
