package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apperrors "bank-reconciliation-core/pkg/errors"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bankrecon",
	Short: "Bank statement reconciliation tool",
	Long: `Bankrecon reconciles an externally supplied bank statement against
internally recorded ledger entries and surfaces the discrepancies a human
must review: duplicate statement rows, ledger entries no transaction
explains, and amount mismatches among matched pairs.

Examples:
  bankrecon reconcile --statement-file statement.csv --ledger-file ledger.csv
  bankrecon reconcile --statement-file s.csv --ledger-file l.csv --output-format json
  bankrecon reconcile --statement-file s.csv --ledger-file l.csv --require-cash-account`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps an error to a process exit code using its category.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return apperrors.AsError(err).ExitCode()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(apperrors.ConfigError(apperrors.CodeInvalidConfig, "unreadable config file", err).ExitCode())
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("BANKRECON")
	viper.AutomaticEnv()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
