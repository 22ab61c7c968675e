// Package main implements a standalone CLI around the mean-shift
// clustering utility in internal/meanshift, unrelated to and not invoked
// by the lafpass instrumentation pipeline.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lafpass/internal/meanshift"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		clusterWidth    float64
		kernelBandwidth float64
		clusterEpsilon  float64
	)

	cmd := &cobra.Command{
		Use:   "meanshift <comma,separated,points>",
		Short: "Cluster a list of 1-dimensional points with mean-shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args[0])
			if err != nil {
				return err
			}

			cfg := meanshift.DefaultConfig()
			if clusterWidth > 0 {
				cfg.ClusterWidth = clusterWidth
			}
			if kernelBandwidth > 0 {
				cfg.KernelBandwidth = kernelBandwidth
			}
			if clusterEpsilon > 0 {
				cfg.ClusterEpsilon = clusterEpsilon
			}

			clusters := meanshift.ClusterPoints(points, cfg)

			fmt.Printf("%d points, %d clusters\n", len(points), len(clusters))
			for i, c := range clusters {
				fmt.Printf("cluster %d: mode=%.2f size=%d points=%v\n", i, c.Mode, len(c.OriginalPoints), c.OriginalPoints)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&clusterWidth, "cluster-width", 0, "override the default cluster width")
	cmd.Flags().Float64Var(&kernelBandwidth, "kernel-bandwidth", 0, "override the default kernel bandwidth")
	cmd.Flags().Float64Var(&clusterEpsilon, "cluster-epsilon", 0, "override the default cluster-join epsilon")

	return cmd
}

func parsePoints(arg string) ([]float64, error) {
	parts := strings.Split(arg, ",")
	points := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid point %q: %w", p, err)
		}
		points = append(points, v)
	}
	return points, nil
}
