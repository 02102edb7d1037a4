package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/paperscout/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API",
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

		s := server.New(cfg.Server.Addr, st, p, logger)
		if err := s.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
