package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"cascade-bridge/internal/cascade"
	"cascade-bridge/internal/config"
	"cascade-bridge/internal/credentials"
	"cascade-bridge/internal/discovery"
	"cascade-bridge/internal/server"
)

const serveUsage = `Usage:
  cascade-bridge serve [--config <path>] [--port <port>]

Flags:
  --config string   Path to optional YAML configuration file
  --port   int      Override server port from configuration`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	source := &discovery.Source{AssetPath: cfg.Discovery.AssetPath}
	resolver := credentials.NewResolver(credentials.NewSystemInspector())
	client := cascade.New(source.FieldMap(),
		cascade.WithPolling(cfg.Cascade.PollInterval, cfg.Cascade.PollAttempts))

	srv, err := server.New(cfg, resolver, client)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
