package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnpfay/WakeVoter/internal/export"
	"github.com/johnpfay/WakeVoter/internal/pipeline"
	"github.com/johnpfay/WakeVoter/internal/turf"
	"github.com/johnpfay/WakeVoter/internal/voter"
)

var turfsCmd = &cobra.Command{
	Use:   "turfs",
	Short: "Build and export canvassing turfs",
}

var (
	buildSeed int64
	buildOut  string
)

var turfsBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the full turf build for the configured county",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("seed") {
			cfg.Turf.Seed = buildSeed
		} else if cfg.Turf.Seed == 0 {
			// Unset seed: draw one so the run record still pins it.
			cfg.Turf.Seed = time.Now().UnixNano()
		}
		if err := cfg.Validate("build"); err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		res, err := pipeline.New(cfg, st).Run(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("run %s: %d turfs from %d eligible blocks, %d voters assigned, %d warnings\n",
			res.Run.ID, res.Summary.Turfs, res.Summary.EligibleBlocks,
			res.Summary.AssignedVoters, res.Summary.Warnings)

		if buildOut != "" {
			if err := writeArtifacts(buildOut, res.Turfs, res.Assignments, res.Voters); err != nil {
				return err
			}
			fmt.Printf("artifacts written to %s\n", buildOut)
		}
		return nil
	},
}

var (
	exportRunID string
	exportOut   string
)

var turfsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-export a persisted run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}
		if exportRunID == "" {
			return eris.New("--run is required")
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		turfs, err := st.ListTurfs(ctx, exportRunID)
		if err != nil {
			return err
		}
		if len(turfs) == 0 {
			return eris.Errorf("run %s has no turfs", exportRunID)
		}
		assignments, err := st.ListAssignments(ctx, exportRunID)
		if err != nil {
			return err
		}

		// The store keeps assignments, not full voter records, so the
		// re-exported workbook has no voter roster rows.
		if err := writeArtifacts(exportOut, turfs, assignments, nil); err != nil {
			return err
		}
		fmt.Printf("run %s exported to %s\n", exportRunID, exportOut)
		return nil
	},
}

var statusLimit int

var turfsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, statusLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%s  %-8s  %s  seed=%d  turfs=%d  voters=%d  %s\n",
				r.ID, r.Status, r.County, r.Seed,
				r.Summary.Turfs, r.Summary.AssignedVoters,
				r.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

// writeArtifacts writes the CSV, GeoJSON, and XLSX outputs into dir.
func writeArtifacts(dir string, turfs []turf.Turf, assignments []turf.Assignment, voters []voter.Voter) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return eris.Wrapf(err, "create output dir %s", dir)
	}

	write := func(name string, fn func(f *os.File) error) error {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return eris.Wrapf(err, "create %s", name)
		}
		defer f.Close()
		return fn(f)
	}

	if err := write("turfs.csv", func(f *os.File) error {
		return export.WriteTurfsCSV(f, turfs)
	}); err != nil {
		return err
	}
	if err := write("assignments.csv", func(f *os.File) error {
		return export.WriteAssignmentsCSV(f, assignments)
	}); err != nil {
		return err
	}
	if err := write("turfs.geojson", func(f *os.File) error {
		return export.WriteGeoJSON(f, turfs)
	}); err != nil {
		return err
	}
	if err := write("roster.xlsx", func(f *os.File) error {
		return export.WriteRosterXLSX(f, turfs, assignments, voters)
	}); err != nil {
		return err
	}

	zap.L().Info("artifacts written",
		zap.String("component", "cmd.turfs"),
		zap.String("dir", dir),
		zap.Int("turfs", len(turfs)),
		zap.Int("assignments", len(assignments)),
	)
	return nil
}

func init() {
	turfsBuildCmd.Flags().Int64Var(&buildSeed, "seed", 0, "random id seed (default from config)")
	turfsBuildCmd.Flags().StringVar(&buildOut, "out", "", "directory for CSV/XLSX/GeoJSON artifacts")

	turfsExportCmd.Flags().StringVar(&exportRunID, "run", "", "run id to export")
	turfsExportCmd.Flags().StringVar(&exportOut, "out", "out", "output directory")

	turfsStatusCmd.Flags().IntVar(&statusLimit, "limit", 20, "max runs to list")

	turfsCmd.AddCommand(turfsBuildCmd, turfsExportCmd, turfsStatusCmd)
	rootCmd.AddCommand(turfsCmd)
}
