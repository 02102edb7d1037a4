package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score papers that have not been scored yet",
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

		n, err := p.ScoreNow()
		if err != nil {
			return err
		}
		fmt.Printf("scored %d papers\n", n)
		return nil
	},
}
