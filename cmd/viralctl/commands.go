package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/viralscan/internal/config"
	"github.com/kailas-cloud/viralscan/internal/report"
	"github.com/kailas-cloud/viralscan/internal/usecase/training"
)

func newTrainCmd(root *rootOptions) *cobra.Command {
	var (
		datasetPath string
		family      string
		reportPath  string
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model on the configured dataset and persist it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.open(cmd.Context(), func(c *config.Config) {
				if datasetPath != "" {
					c.Dataset.Path = datasetPath
				}
				if family != "" {
					c.Classifier.Family = family
				}
			})
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.trainer().Train(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), reportPath, func(w io.Writer) error {
				return report.WriteJSON(w, report.NewTraining(res))
			})
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "override dataset.path")
	cmd.Flags().StringVar(&family, "classifier", "", "override classifier.family (random_forest, knn)")
	cmd.Flags().StringVarP(&reportPath, "report", "o", "", "write the JSON report to a file instead of stdout")
	return cmd
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	var (
		format     string
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "predict <file|->",
		Short: "Classify the sequences of a FASTA file with the persisted model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "csv" {
				return fmt.Errorf("unknown format %q: want json or csv", format)
			}
			payload, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			a, err := root.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.registry.LoadPersisted(cmd.Context()); err != nil {
				return err
			}

			out, err := a.predictor().Predict(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), outputPath, func(w io.Writer) error {
				if format == "csv" {
					return report.WriteCSV(w, out.Results)
				}
				return report.WriteJSON(w, report.NewPrediction(out))
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or csv")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write results to a file instead of stdout")
	return cmd
}

func newModelCmd(root *rootOptions) *cobra.Command {
	var stored bool
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Describe the persisted model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()
			if stored {
				meta, err := a.store.Describe(cmd.Context())
				if err != nil {
					return err
				}
				return report.WriteJSON(cmd.OutOrStdout(), report.NewArtifact(meta))
			}
			if err := a.registry.LoadPersisted(cmd.Context()); err != nil {
				return err
			}
			m, err := a.registry.Current()
			if err != nil {
				return err
			}
			return report.WriteJSON(cmd.OutOrStdout(), report.NewModel(m, training.TopFeatures))
		},
	}
	cmd.Flags().BoolVar(&stored, "stored", false, "print only the stored artifact metadata")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// writeOutput runs write against stdout, or against path when one is given.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
