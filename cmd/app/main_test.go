package main

import (
	"context"
	"slices"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/starford/twigraph/internal"
	"github.com/starford/twigraph/internal/centrality"
)

func TestApplyFlags_MetricsAddedOnce(t *testing.T) {
	cfg := internal.NewDefaultConfig()
	cfg.Metrics = []string{centrality.MetricInDegree}

	cmd := &cli.Command{
		Name:  "enrich",
		Flags: flags([]cli.Flag{snapshotFlag()}, enrichFlags()),
		Action: func(_ context.Context, cmd *cli.Command) error {
			applyFlags(cmd, cfg)
			return nil
		},
	}
	args := []string{"enrich", "--degree-centrality", "--pagerank", "--ratio", "2", "--out", "g.db"}
	if err := cmd.Run(context.Background(), args); err != nil {
		t.Fatal(err)
	}

	want := []string{centrality.MetricInDegree, centrality.MetricPageRank, centrality.MetricOutDegree}
	if !slices.Equal(cfg.Metrics, want) {
		t.Errorf("metrics = %v, want %v", cfg.Metrics, want)
	}
	if cfg.Propagation.RatioThreshold != 2 || cfg.Snapshot.Path != "g.db" {
		t.Errorf("propagation = %+v, snapshot = %q", cfg.Propagation, cfg.Snapshot.Path)
	}
}
