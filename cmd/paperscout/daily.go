package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimson-sun/paperscout/internal/logging"
)

var dailyForceDigest bool

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Run the full daily workflow once",
	Long: `Runs one pass of the daily workflow: fetch new papers, train the
classifier if enough labels exist, score everything new, and send a
digest when one is due.

Output is appended to a per-day log file under the configured log
directory, so repeated runs (for example from cron) accumulate in one
place. The run report is printed to stdout as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runLogger, logPath, closeLog, err := logging.InitWithRunLog(cfg.Logging.Dir, logLevel())
		if err != nil {
			return err
		}
		defer closeLog()
		defer runLogger.Sync()
		runLogger.Info("daily run invoked", zap.String("log_file", logPath))

		st, err := openStore()
		if err != nil {
			runLogger.Error("store unavailable", zap.Error(err))
			return err
		}
		defer st.Close()

		eng, err := buildEngine()
		if err != nil {
			runLogger.Error("engine unavailable", zap.Error(err))
			return err
		}
		defer eng.Close()

		p, err := buildPipeline(st, eng, runLogger)
		if err != nil {
			return err
		}

		report, err := p.Run(cmd.Context(), dailyForceDigest)
		if err != nil {
			runLogger.Error("run aborted", zap.Error(err))
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if !report.OK() {
			return fmt.Errorf("run completed with %d errors, see %s", len(report.Errors), logPath)
		}
		return nil
	},
}

func init() {
	dailyCmd.Flags().BoolVar(&dailyForceDigest, "force-digest", false, "send a digest even if one is not due")
}
