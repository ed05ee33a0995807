// Package cli implements the fedwalk command tree.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/relab/fedwalk/logging"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "fedwalk",
		Short: "Two-party differentially private federated training.",
		Long: `fedwalk trains a shared model between two institutions without exchanging
their data. The participants pass the model parameters back and forth over a
single connection, each taking differentially private steps on its own data.

To train, start 'fedwalk participant --participant server' on one host and
'fedwalk participant --participant client --host <server>' on the other, or run
both on this host with 'fedwalk local'. Use 'fedwalk resolve' to inspect the
hyperparameters selected for a privacy budget.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fedwalk.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "sets the log level (debug, info, warn, error)")
	cobra.CheckErr(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))
	rootCmd.PersistentFlags().StringSlice("log-pkgs", []string{}, "set the log level on a per-package basis, as package:level")
	cobra.CheckErr(viper.BindPFlag("log-pkgs", rootCmd.PersistentFlags().Lookup("log-pkgs")))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".fedwalk" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".fedwalk")
	}

	viper.SetEnvPrefix("fedwalk")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	cobra.CheckErr(setLogLevels(viper.GetString("log-level"), viper.GetStringSlice("log-pkgs")))
}

func setLogLevels(level string, packageLevels []string) error {
	if err := logging.SetLogLevel(level); err != nil {
		return err
	}
	for _, packageLevel := range packageLevels {
		parts := strings.Split(packageLevel, ":")
		if len(parts) != 2 {
			return fmt.Errorf("log-pkgs flag must be a comma-separated list of package:level strings")
		}
		if err := logging.SetPackageLogLevel(parts[0], parts[1]); err != nil {
			return err
		}
	}
	return nil
}
