package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crimson-sun/paperscout/internal/engine/dedup"
	"github.com/crimson-sun/paperscout/internal/model"
	"github.com/crimson-sun/paperscout/internal/source"
)

var fetchKeywords string

func init() {
	fetchCmd.Flags().StringVar(&fetchKeywords, "keywords", "",
		"restrict the fetch to papers matching these keywords")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the latest papers for the configured categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		src, err := buildSource()
		if err != nil {
			return err
		}
		srcCfg := sourceConfig()

		var fetched []model.Paper
		for _, category := range cfg.Fetch.Categories {
			var papers []model.Paper
			if fetchKeywords != "" {
				papers, err = src.Search(cmd.Context(), srcCfg, source.SearchParams{
					Category: category,
					Keywords: fetchKeywords,
					Limit:    cfg.Fetch.PapersPerCategory,
				})
			} else {
				papers, err = src.Latest(cmd.Context(), srcCfg, category, cfg.Fetch.PapersPerCategory)
			}
			if err != nil {
				return fmt.Errorf("fetch %s: %w", category, err)
			}
			logger.Info("fetched category", zap.String("category", category), zap.Int("papers", len(papers)))
			fetched = append(fetched, papers...)
		}

		unique := dedup.Collapse(fetched)
		added, skipped, err := st.AddPapers(unique)
		if err != nil {
			return err
		}
		fmt.Printf("fetched %d papers: %d new, %d already known\n", len(fetched), added, skipped)
		return nil
	},
}
