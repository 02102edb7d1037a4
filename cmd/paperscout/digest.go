package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/paperscout/internal/notify/stdout"
	"github.com/crimson-sun/paperscout/internal/pipeline"
)

var digestToStdout bool

func init() {
	digestCmd.Flags().BoolVar(&digestToStdout, "stdout", false,
		"print the digest as JSON instead of delivering it")
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send a digest of the best recent papers now",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		var opts []pipeline.Option
		if digestToStdout {
			opts = append(opts, pipeline.WithNotifier(stdout.New(true)))
		}

		// Digest delivery reads already-scored papers, so neither the
		// embedding engine nor the paper source is needed.
		p := pipeline.New(cfg, st, nil, nil, logger, opts...)

		report, err := p.SendDigestNow(cmd.Context())
		if err != nil {
			return err
		}
		if !report.OK() {
			return fmt.Errorf("digest failed: %s", report.Errors[0])
		}
		if !report.DigestSent {
			fmt.Println("no papers matched the digest criteria")
			return nil
		}
		fmt.Println("digest sent")
		return nil
	},
}
