package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/astra/internal"
	"github.com/starford/astra/internal/script"
	pkgconfig "github.com/starford/astra/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.Root().String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func apply(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var s *script.Script
	switch texts := cmd.StringSlice("text"); {
	case len(texts) > 0:
		s = &script.Script{}
		for i, t := range texts {
			s.Lines = append(s.Lines, script.Line{Number: i + 1, Text: t})
		}
	case cmd.Args().Present():
		data, err := os.ReadFile(cmd.Args().First())
		if err != nil {
			return fmt.Errorf("read script: %w", err)
		}
		if s, err = script.Parse(data); err != nil {
			return fmt.Errorf("parse script: %w", err)
		}
	default:
		return errors.New("a script file or --text is required")
	}

	if id := cmd.String("app"); id != "" {
		s.Header.App = id
	}
	if name := cmd.String("name"); name != "" {
		s.Header.Name = name
	}

	id, err := internal.ApplyScript(ctx, s, os.Stdout, internal.WithConfig(cfg))
	if id != "" {
		fmt.Fprintf(os.Stdout, "app %s\n", id)
	}
	return err
}

func main() {
	cmd := &cli.Command{
		Name:   "astra",
		Usage:  "Voice-driven app blueprint editor with HTTP, SSE and MCP surfaces",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "apply",
				Usage:     "Run a command script (or --text utterances) against an app",
				ArgsUsage: "[script-file]",
				Action:    apply,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "text",
						Aliases: []string{"t"},
						Usage:   "Utterance to run; repeat for several",
					},
					&cli.StringFlag{
						Name:  "app",
						Usage: "App id (overrides the script header)",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Name for a new app when no app id is given",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
