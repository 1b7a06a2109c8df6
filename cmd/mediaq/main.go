// Package main provides the mediaq CLI application.
//
// mediaq watches a directory for new media files, extracts their
// audio with bounded concurrency, and keeps crash-safe queue state so
// interrupted work resumes on restart.
package main

import (
	"flag"
	"fmt"
	"os"
)

// version is set during build time.
var version = "dev"

// globalOptions holds global flags that apply to all commands.
type globalOptions struct {
	configPath string
	logLevel   string
	jsonOutput bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic.
func run() error {
	// Define global flags.
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "show version information")
	logLevel := flag.String("log-level", "", "log level (debug, info, warn, error)")
	jsonOutput := flag.Bool("json", false, "output in JSON format (applies to all commands)")

	// Parse command.
	flag.Parse()

	// Handle version flag.
	if *showVersion {
		fmt.Printf("mediaq %s\n", version)
		return nil
	}

	// Get command.
	args := flag.Args()
	if len(args) == 0 {
		return showUsage()
	}

	command := args[0]

	globalOpts := globalOptions{
		configPath: *configPath,
		logLevel:   *logLevel,
		jsonOutput: *jsonOutput,
	}

	switch command {
	case "run":
		return runRunCommand(globalOpts, args[1:])
	case "status":
		return runStatusCommand(globalOpts, args[1:])
	case "queue":
		return runQueueCommand(globalOpts, args[1:])
	case "cache":
		return runCacheCommand(globalOpts, args[1:])
	case "config":
		return runConfigCommand(globalOpts, args[1:])
	case "version":
		fmt.Printf("mediaq %s\n", version)
		return nil
	case "help":
		return showUsage()
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// showUsage prints command usage information.
func showUsage() error {
	fmt.Print(`mediaq - media ingestion pipeline

Usage:
  mediaq [global flags] <command> [command flags]

Commands:
  run              Start the pipeline and process files until interrupted
  status           Show pipeline, queue, and cache status
  queue            Inspect and maintain the processing queue
  cache            Inspect and maintain the result cache
  config           Show, create, or validate configuration
  version          Show version information
  help             Show this help

Global flags:
  -config string     path to configuration file
  -log-level string  log level (debug, info, warn, error)
  -json              output in JSON format
  -version           show version information

Examples:
  mediaq run
  mediaq -json status
  mediaq queue list -status error
  mediaq queue retry-all
  mediaq cache cleanup -days 7
  mediaq config init -path ./config.yaml -watch-dir ./incoming -output-dir ./audio
`)
	return nil
}
