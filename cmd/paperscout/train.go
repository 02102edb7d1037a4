package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/paperscout/internal/engine/classifier"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the relevance classifier on your labeled papers",
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

		metrics, err := p.TrainNow()
		if errors.Is(err, classifier.ErrTooFewSamples) || errors.Is(err, classifier.ErrOneClass) {
			return fmt.Errorf("%w\nlabel more papers with 'paperscout label' first", err)
		}
		if err != nil {
			return err
		}

		fmt.Printf("trained on %d samples (%d relevant, %d not relevant)\n",
			metrics.Samples, metrics.Positive, metrics.Negative)
		fmt.Printf("accuracy %.2f  precision %.2f  recall %.2f  f1 %.2f\n",
			metrics.Accuracy, metrics.Precision, metrics.Recall, metrics.F1)
		return nil
	},
}
