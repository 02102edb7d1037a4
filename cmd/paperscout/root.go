package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crimson-sun/paperscout/internal/config"
	"github.com/crimson-sun/paperscout/internal/engine"
	"github.com/crimson-sun/paperscout/internal/engine/embedder"
	"github.com/crimson-sun/paperscout/internal/logging"
	"github.com/crimson-sun/paperscout/internal/pipeline"
	"github.com/crimson-sun/paperscout/internal/source"
	"github.com/crimson-sun/paperscout/internal/store"

	// Register source implementations.
	_ "github.com/crimson-sun/paperscout/internal/source/arxiv"
)

var (
	cfgFile string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "paperscout",
	Short: "Personalized arXiv paper discovery",
	Long: `paperscout fetches new arXiv papers, scores them against your
interests with an embedding-based classifier, and delivers digests of
the best matches. Label papers to teach it what you care about.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger = logging.Init(false, logLevel())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		fetchCmd,
		scoreCmd,
		trainCmd,
		labelCmd,
		digestCmd,
		dailyCmd,
		serveCmd,
		scheduleCmd,
		exportCmd,
		importCmd,
	)
}

func logLevel() zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	return logging.ParseLevel(cfg.Logging.Level)
}

func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

func buildEngine() (*engine.Engine, error) {
	emb, err := embedder.New(cfg.Engine.ModelPath, cfg.Engine.VocabPath)
	if err != nil {
		return nil, err
	}
	return engine.New(emb, cfg.Engine.DefaultScore), nil
}

func buildSource() (source.Source, error) {
	ctor, err := source.Get(cfg.Fetch.Provider)
	if err != nil {
		return nil, err
	}
	return ctor(), nil
}

func sourceConfig() source.Config {
	return source.Config{
		Provider:  cfg.Fetch.Provider,
		Endpoint:  cfg.Fetch.Endpoint,
		UserAgent: cfg.Fetch.UserAgent,
	}
}

func buildPipeline(st *store.Store, eng *engine.Engine, log *zap.Logger) (*pipeline.Pipeline, error) {
	src, err := buildSource()
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, st, eng, src, log), nil
}
