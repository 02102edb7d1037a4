package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/paperscout/internal/snapshot"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the paper corpus to a compressed snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		count, err := st.CountPapers()
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Println("nothing to export")
			return nil
		}
		papers, err := st.ListPapers(count)
		if err != nil {
			return err
		}

		path, err := snapshot.New(cfg.Snapshot.Dir).Export(papers)
		if err != nil {
			return err
		}
		fmt.Printf("exported %d papers to %s\n", len(papers), path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <snapshot>",
	Short: "Import papers from a snapshot file",
	Long: `Restores papers from a snapshot created by 'paperscout export',
including labels, reading-list state, and scores. Papers already in
the database are left untouched. The argument is a path, or a bare
filename resolved against the snapshot directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		papers, err := snapshot.New(cfg.Snapshot.Dir).Import(args[0])
		if err != nil {
			return err
		}
		if len(papers) == 0 {
			fmt.Println("snapshot contains no papers")
			return nil
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		added, skipped, err := st.RestorePapers(papers)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d papers: %d new, %d already known\n", len(papers), added, skipped)
		return nil
	},
}
