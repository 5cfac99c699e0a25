package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/twigraph/internal"
	"github.com/starford/twigraph/internal/centrality"
	pkgconfig "github.com/starford/twigraph/pkg/config"
)

type runner func(ctx context.Context, opts ...internal.Option) error

// loadConfig reads the config file. A missing file is fine unless the path
// was given explicitly; defaults apply then.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// applyFlags lets subcommand flags override the config file.
func applyFlags(cmd *cli.Command, cfg *internal.Config) {
	if cmd.IsSet("input") {
		cfg.Input.Dir = cmd.String("input")
	}
	if cmd.IsSet("out") {
		cfg.Snapshot.Path = cmd.String("out")
	}
	if cmd.IsSet("start-date") {
		cfg.Input.Start = cmd.String("start-date")
	}
	if cmd.IsSet("end-date") {
		cfg.Input.End = cmd.String("end-date")
	}
	if cmd.IsSet("propagate-tags") {
		cfg.Propagation.TaggingFile = cmd.String("propagate-tags")
	}
	if cmd.IsSet("max-rounds") {
		cfg.Propagation.MaxRounds = int(cmd.Int("max-rounds"))
	}
	if cmd.IsSet("ratio") {
		cfg.Propagation.RatioThreshold = cmd.Float("ratio")
	}

	metricFlags := []struct {
		flag  string
		names []string
	}{
		{"hits", []string{centrality.PassHITS}},
		{"pagerank", []string{centrality.MetricPageRank}},
		{"degree-centrality", []string{centrality.MetricInDegree, centrality.MetricOutDegree}},
		{"betweenness-centrality", []string{centrality.MetricBetweenness}},
		{"current-flow", []string{centrality.MetricCurrentFlow}},
	}
	for _, m := range metricFlags {
		if !cmd.Bool(m.flag) {
			continue
		}
		for _, name := range m.names {
			if !slices.Contains(cfg.Metrics, name) {
				cfg.Metrics = append(cfg.Metrics, name)
			}
		}
	}
}

func action(run runner) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if err := run(ctx, internal.WithConfig(cfg), internal.WithOutput(os.Stdout)); err != nil {
			return fmt.Errorf("%s: %w", cmd.Name, err)
		}
		return nil
	}
}

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Directory holding the chunk files"},
		&cli.StringFlag{Name: "start-date", Usage: "Keep posts from this day on (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "end-date", Usage: "Keep posts up to and including this day (YYYY-MM-DD)"},
	}
}

func snapshotFlag() cli.Flag {
	return &cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Snapshot file"}
}

func enrichFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "hits", Usage: "Attach hub and authority scores"},
		&cli.BoolFlag{Name: "pagerank", Usage: "Attach PageRank"},
		&cli.BoolFlag{Name: "degree-centrality", Usage: "Attach in- and out-degree centrality"},
		&cli.BoolFlag{Name: "betweenness-centrality", Usage: "Attach betweenness centrality"},
		&cli.BoolFlag{Name: "current-flow", Usage: "Attach current-flow betweenness"},
		&cli.StringFlag{Name: "propagate-tags", Usage: "Tagging file (YAML or JSON) to seed and propagate"},
		&cli.IntFlag{Name: "max-rounds", Usage: "Propagation round limit"},
		&cli.FloatFlag{Name: "ratio", Usage: "Category ratio threshold"},
	}
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func main() {
	cmd := &cli.Command{
		Name:  "twigraph",
		Usage: "Build, enrich and serve an interaction graph of collected social media posts",
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
				Name:   "build",
				Usage:  "Build the graph from the input chunks and save a new snapshot",
				Flags:  flags(inputFlags(), []cli.Flag{snapshotFlag()}, enrichFlags()),
				Action: action(internal.Build),
			},
			{
				Name:   "enrich",
				Usage:  "Attach metrics and propagate tags on an existing snapshot",
				Flags:  flags([]cli.Flag{snapshotFlag()}, enrichFlags()),
				Action: action(internal.Enrich),
			},
			{
				Name:   "info",
				Usage:  "Print a JSON summary of a snapshot",
				Flags:  []cli.Flag{snapshotFlag()},
				Action: action(internal.Info),
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and ingest new chunks as they arrive",
				Flags:  flags(inputFlags(), []cli.Flag{snapshotFlag()}, enrichFlags()),
				Action: action(internal.Run),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the snapshot as MCP tools on stdio",
				Flags:  flags(inputFlags(), []cli.Flag{snapshotFlag()}),
				Action: action(internal.ServeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
