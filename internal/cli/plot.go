package cli

import (
	"fmt"
	"os"

	"github.com/relab/fedwalk/metrics/plotting"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var plotCmd = &cobra.Command{
	Use:   "plot [measurements...]",
	Short: "Plot the training loss from measurement files.",
	Long: `The plot command reads the measurement files written by the participants and
plots the loss of every local step against its position in the walk.`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: bindFlags,
	RunE: func(_ *cobra.Command, args []string) error {
		return plotLoss(viper.GetString("loss-plot"), args...)
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().String("loss-plot", "loss.pdf", "file to save the loss plot to")
}

func plotLoss(out string, files ...string) error {
	loss := plotting.NewLossPlot()
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		err = plotting.NewReader(f, loss).ReadAll()
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if loss.Len() == 0 {
		return fmt.Errorf("no loss measurements in %v", files)
	}
	return loss.Plot(out)
}
