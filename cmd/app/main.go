package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/shelf/internal"
	pkgconfig "github.com/starford/shelf/pkg/config"
)

var version = "dev"

// loadConfig reads the config file, then applies the --library override.
// Only an explicitly given config file has to exist, but a library path must
// come from one of the two.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	libraryFlag := func(c *internal.Config) {
		if lib := cmd.String("library"); lib != "" {
			c.Library.Path = lib
		}
	}
	if err := load(configPath, cfg, libraryFlag); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func newCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "shelf",
		Usage:   "Read-only browser for Calibre libraries",
		Version: version,
		Writer:  stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "library",
				Aliases: []string{"l"},
				Usage:   "Calibre library directory (overrides library.path)",
				Sources: cli.EnvVars("SHELF_LIBRARY"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print the library's books",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sort", Usage: "natural, title or author", Value: "natural"},
					&cli.BoolFlag{Name: "desc", Usage: "Descending order"},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filter by title or author substring"},
					&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
					&cli.BoolFlag{Name: "comments", Usage: "Add a comments column"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withLibrary(ctx, cmd, func(env *cliEnv) error {
						return listBooks(stdout, env, listFlags{
							sort:     cmd.String("sort"),
							desc:     cmd.Bool("desc"),
							query:    cmd.String("query"),
							json:     cmd.Bool("json"),
							comments: cmd.Bool("comments"),
						})
					})
				},
			},
			{
				Name:      "show",
				Usage:     "Print one book's details",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withLibrary(ctx, cmd, func(env *cliEnv) error {
						return showBook(stdout, env, cmd.Args().First(), cmd.Bool("json"))
					})
				},
			},
			{
				Name:  "authors",
				Usage: "Print every author in the library",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Print JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withLibrary(ctx, cmd, func(env *cliEnv) error {
						return listAuthors(ctx, stdout, env, cmd.Bool("json"))
					})
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the library over HTTP",
				Action: serve,
			},
			{
				Name:  "mcp",
				Usage: "Serve the library to MCP clients over stdio",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withLibrary(ctx, cmd, serveMCP)
				},
			},
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
