package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/relab/fedwalk/dataset"
	"github.com/relab/fedwalk/evaluate"
	"github.com/relab/fedwalk/model"
	"github.com/relab/fedwalk/wire"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Classify test samples with a trained model.",
	Long: `The predict command loads a model written by the server and classifies the
samples of a test file. The predictions are written as CSV to the output
directory, in a file named after the model.

If no gene signature is given, the first of rotterdam, citbcmst and union that
yields as many features as the model has is used.`,
	PreRunE: bindFlags,
	RunE: func(_ *cobra.Command, _ []string) error {
		out, err := predictFile(
			viper.GetString("model"),
			viper.GetString("test"),
			viper.GetString("genes-dir"),
			viper.GetString("genes"),
			viper.GetString("output"),
		)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:     "evaluate",
	Short:   "Score predictions against known labels.",
	PreRunE: bindFlags,
	RunE: func(_ *cobra.Command, _ []string) error {
		scores, err := evaluateFiles(viper.GetString("labels"), viper.GetString("preds"))
		if err != nil {
			return err
		}
		mean, std := evaluate.Summary(scores)
		if len(scores) > 1 {
			fmt.Printf("Accuracy: %0.4f (+/- %0.4f)\n", mean, std)
		} else {
			fmt.Printf("Accuracy: %0.4f\n", mean)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().String("model", "", "path to the trained model")
	predictCmd.Flags().String("test", "", "tab-separated gene expression file of the samples to classify")
	predictCmd.Flags().String("genes", "", "gene signature the model was trained on")
	predictCmd.Flags().String("genes-dir", "genes_selection", "directory holding the gene signature lists")
	predictCmd.Flags().String("output", ".", "directory to write the predictions to")
	cobra.CheckErr(predictCmd.MarkFlagRequired("model"))
	cobra.CheckErr(predictCmd.MarkFlagRequired("test"))

	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().String("labels", "", "tab-separated labels, one column per patient")
	evaluateCmd.Flags().String("preds", "", "predictions written by the predict command")
	cobra.CheckErr(evaluateCmd.MarkFlagRequired("labels"))
	cobra.CheckErr(evaluateCmd.MarkFlagRequired("preds"))
}

// predictFile classifies the samples of testPath with the model at
// modelPath and returns the path of the predictions file.
func predictFile(modelPath, testPath, genesDir, signature, outputDir string) (string, error) {
	params, err := wire.ReadFile(modelPath)
	if err != nil {
		return "", err
	}
	m, err := model.FromParameters(params)
	if err != nil {
		return "", err
	}
	test, err := dataset.ReadMatrixFile(testPath)
	if err != nil {
		return "", err
	}
	genes, err := testFeatures(test, genesDir, signature, m.Features())
	if err != nil {
		return "", err
	}

	preds, err := evaluate.Predict(m, dataset.Test(test, genes))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	out := filepath.Join(outputDir, evaluate.ResultsName(modelPath))
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := preds.WriteCSV(f); err != nil {
		f.Close()
		return "", err
	}
	return out, f.Close()
}

// testFeatures selects the genes of test matching a model with the given
// number of features.
func testFeatures(test *dataset.Matrix, genesDir, signature string, features int) ([]string, error) {
	candidates := []string{signature}
	if signature == "" {
		candidates = []string{dataset.Rotterdam, dataset.Citbcmst, dataset.Union, ""}
	}
	for _, name := range candidates {
		sig, err := dataset.Signature(genesDir, name)
		if err != nil {
			if signature != "" {
				return nil, err
			}
			continue
		}
		if genes := dataset.Features(test, sig); len(genes) == features {
			return genes, nil
		}
	}
	if signature != "" {
		return nil, fmt.Errorf("gene signature %q does not match a model with %d features", signature, features)
	}
	return nil, fmt.Errorf("no gene signature matches a model with %d features", features)
}

func evaluateFiles(labelsPath, predsPath string) ([]float64, error) {
	lf, err := os.Open(labelsPath)
	if err != nil {
		return nil, err
	}
	defer lf.Close()
	labels, err := evaluate.ReadLabels(lf)
	if err != nil {
		return nil, err
	}
	pf, err := os.Open(predsPath)
	if err != nil {
		return nil, err
	}
	defer pf.Close()
	preds, err := evaluate.ReadPredictions(pf)
	if err != nil {
		return nil, err
	}
	return evaluate.Accuracy(labels, preds)
}
