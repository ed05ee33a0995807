package cli

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/relab/fedwalk/internal/config"
	"github.com/relab/fedwalk/walk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// localCmd represents the local command
var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run both participants of a training sweep in this process.",
	Long: `The local command runs the server and the client of a training sweep in one
process, connected over the loopback interface. The server trains on the
--tumor and --normal files and the client on --client-tumor and --client-normal.`,
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, _ []string) (err error) {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		server, client := localConfigs(cfg,
			viper.GetString("client-tumor"),
			viper.GetString("client-normal"),
			viper.GetUint64("client-seed"),
		)
		if err := multierr.Combine(server.Validate(), client.Validate()); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stopProfilers, err := startProfilers(cfg.OutputDir)
		if err != nil {
			return err
		}
		defer multierr.AppendInvoke(&err, multierr.Invoke(stopProfilers))

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return runParticipant(ctx, server) })
		g.Go(func() error { return runParticipant(ctx, client) })
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(localCmd)
	addSweepFlags(localCmd.Flags())
	localCmd.Flags().String("client-tumor", "", "tumor samples of the client (default: same as --tumor)")
	localCmd.Flags().String("client-normal", "", "normal samples of the client (default: same as --normal)")
	localCmd.Flags().Uint64("client-seed", config.DefaultClientSeed, "training seed of the client")
}

// localConfigs derives the server and client configurations of a local run
// from cfg. Missing client data falls back to the server's files.
func localConfigs(cfg *config.ParticipantConfig, clientTumor, clientNormal string, clientSeed uint64) (server, client *config.ParticipantConfig) {
	server = cfg.Clone()
	server.SetParticipant(string(walk.Server))
	server.Mode = "subprocess"
	server.Measurements = roleFile(cfg.Measurements, walk.Server)

	client = cfg.Clone()
	client.Participant = string(walk.Client)
	client.Host = "localhost"
	client.Seed = clientSeed
	if clientTumor != "" {
		client.TumorPath = clientTumor
	}
	if clientNormal != "" {
		client.NormalPath = clientNormal
	}
	client.Measurements = roleFile(cfg.Measurements, walk.Client)
	return server, client
}

// roleFile inserts the role before the extension of name.
func roleFile(name string, role walk.Role) string {
	if name == "" {
		return ""
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + string(role) + ext
}
