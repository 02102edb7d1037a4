package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/paperscout/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the hourly digest scheduler in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		eng, err := buildEngine()
		if err != nil {
			return err
		}
		defer eng.Close()

		p, err := buildPipeline(st, eng, logger)
		if err != nil {
			return err
		}

		s := scheduler.New(st, func(ctx context.Context) error {
			_, err := p.Run(ctx, false)
			return err
		}, logger)

		if err := s.Start(cmd.Context()); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
