package cmd

import (
	"context"
	"fmt"
	"strings"
)

const usage = `cascade-bridge exposes an OpenAI-compatible chat API backed by the
local Windsurf language server.

Usage:
  cascade-bridge serve [flags]
  cascade-bridge fields [flags]
  cascade-bridge models [flags]

Commands:
  serve    Start the loopback HTTP server
  fields   Print the discovered Metadata field numbers as JSON
  models   Print the model catalog, or the vendor enum with --asset

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "fields":
		return fields(args[1:])
	case "models":
		return modelsCmd(args[1:])
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}
