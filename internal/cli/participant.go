package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// participantCmd represents the participant command
var participantCmd = &cobra.Command{
	Use:   "participant",
	Short: "Run one participant of a training sweep.",
	Long: `The participant command runs the server or the client side of a training sweep.
The server listens for exactly one client. The client keeps trying to connect
until the server is up. Both sides then train one model for every combination
of the given epsilons and deltas, skipping budgets that no catalog profile
satisfies. The server writes each model to the output directory.`,
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stopProfilers, err := startProfilers(cfg.OutputDir)
		if err != nil {
			return err
		}
		defer multierr.AppendInvoke(&err, multierr.Invoke(stopProfilers))
		return runParticipant(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(participantCmd)
	participantCmd.Flags().String("participant", "", "the side to run: server or client")
	addSweepFlags(participantCmd.Flags())
}

func bindFlags(cmd *cobra.Command, _ []string) error {
	return viper.BindPFlags(cmd.Flags())
}

func addSweepFlags(flags *pflag.FlagSet) {
	flags.String("mode", "subprocess", "launch mode, selects the address the server binds: subprocess or docker")
	flags.String("host", "localhost", "the address of the server (client only)")
	flags.Int("port", 8001, "the port the server listens on")
	flags.String("strategy", "walk", "training strategy")
	flags.String("cue", "", "cue file describing the sweep")

	flags.String("catalog", "", "path to the privacy profile catalog (CSV)")
	flags.StringSlice("epsilons", nil, "the epsilons to train for")
	flags.StringSlice("deltas", nil, "the deltas to train for")

	flags.String("tumor", "", "tab-separated gene expression file of tumor samples")
	flags.String("normal", "", "tab-separated gene expression file of normal samples")
	flags.String("genes-dir", "genes_selection", "directory holding the gene signature lists")
	flags.Uint64("seed", 0, "training seed (default 141 for the server, 42 for the client)")
	flags.Uint64("shuffle-seed", 42, "seed used to shuffle the local dataset")

	flags.String("output", ".", "the directory to save models, the manifest, measurements and profiles to")
	flags.String("artifact-name", "server_model.bin", "file name of the server's model before it is renamed")
	flags.String("measurements", "", "file to write step measurements to, relative to the output directory")

	flags.Duration("bind-retry-delay", time.Second, "delay before the server retries binding")
	flags.Duration("connect-interval", time.Second, "interval between connection attempts of the client")

	flags.Bool("cpu-profile", false, "enable cpu profiling")
	flags.Bool("mem-profile", false, "enable memory profiling")
	flags.Bool("trace", false, "enable trace")
	flags.Bool("fgprof-profile", false, "enable fgprof")
}
