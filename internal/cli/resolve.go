package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/relab/fedwalk/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show the hyperparameters selected for a privacy budget.",
	Long: `The resolve command looks up the privacy profile used to train a model for the
given epsilon and delta and prints its hyperparameters. It fails if no profile
satisfies the budget.`,
	PreRunE: bindFlags,
	RunE: func(_ *cobra.Command, _ []string) error {
		catalog, err := profile.LoadCatalogFile(viper.GetString("catalog"))
		if err != nil {
			return err
		}
		return resolve(os.Stdout, catalog, viper.GetFloat64("epsilon"), viper.GetFloat64("delta"), viper.GetBool("json"))
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().String("catalog", "", "path to the privacy profile catalog (CSV)")
	resolveCmd.Flags().Float64("epsilon", 0, "privacy budget epsilon")
	resolveCmd.Flags().Float64("delta", 0, "privacy budget delta")
	resolveCmd.Flags().Bool("json", false, "print the typed training parameters as JSON")
	cobra.CheckErr(resolveCmd.MarkFlagRequired("catalog"))
	cobra.CheckErr(resolveCmd.MarkFlagRequired("epsilon"))
}

func resolve(w io.Writer, catalog *profile.Catalog, epsilon, delta float64, asJSON bool) error {
	p, err := catalog.Lookup(epsilon, delta)
	if err != nil {
		return err
	}
	if asJSON {
		params, err := p.Hyperparameters.TrainingParams()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "\t")
		return enc.Encode(params)
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "profile\tepsilon=%v delta=%v\n", p.Epsilon, p.Delta)
	keys := make([]string, 0, len(p.Hyperparameters))
	for k := range p.Hyperparameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, p.Hyperparameters[k])
	}
	return tw.Flush()
}
