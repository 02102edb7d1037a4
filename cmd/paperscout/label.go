package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var labelLimit int

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Interactively label papers as relevant or not",
	Long: `Walks through unlabeled papers, best-scored first. Answer y (relevant),
n (not relevant), s (skip), or q (quit). Labels feed the classifier.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		papers, err := st.UnlabeledPapers(labelLimit)
		if err != nil {
			return err
		}
		if len(papers) == 0 {
			fmt.Println("no unlabeled papers, run 'paperscout fetch' first")
			return nil
		}

		scanner := bufio.NewScanner(os.Stdin)
		labeled := 0
		for i, paper := range papers {
			fmt.Printf("\n[%d/%d] %s\n", i+1, len(papers), strings.TrimSpace(paper.Title))
			fmt.Printf("%s · score %.2f · %s\n", paper.PrimaryCategory, paper.RelevanceScore, paper.AbsURL)
			fmt.Println(snippet(paper.Abstract, 300))
			fmt.Print("relevant? [y/n/s/q]: ")

			if !scanner.Scan() {
				break
			}
			switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
			case "y":
				if err := st.LabelPaper(paper.ArxivID, 1); err != nil {
					return err
				}
				labeled++
			case "n":
				if err := st.LabelPaper(paper.ArxivID, 0); err != nil {
					return err
				}
				labeled++
			case "q":
				fmt.Printf("labeled %d papers\n", labeled)
				return nil
			default:
				// skip
			}
		}
		fmt.Printf("labeled %d papers\n", labeled)
		return scanner.Err()
	},
}

func init() {
	labelCmd.Flags().IntVar(&labelLimit, "limit", 10, "maximum papers to review")
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
