package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bank-reconciliation-core/internal/matcher"
	"bank-reconciliation-core/internal/models"
	"bank-reconciliation-core/internal/parsers"
	"bank-reconciliation-core/internal/reporter"
	"bank-reconciliation-core/internal/session"
	"bank-reconciliation-core/pkg/logger"

	apperrors "bank-reconciliation-core/pkg/errors"
)

var (
	statementFile      string
	ledgerFile         string
	dateWindowHours    int
	amountEpsilon      string
	cashKeywords       []string
	requireCashAccount bool
	restrictMissing    bool
	nonExclusive       bool
	outputFormat       string
	outputFile         string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a bank statement against ledger entries",
	Long: `Reconcile loads a bank statement file and a ledger entries CSV file,
matches statement rows against ledger entries within the configured date and
amount tolerances, and reports duplicates, missing entries, and amount
discrepancies.

Statement rows are never rejected: malformed amounts become zero and
unparseable dates leave the row unmatched. Ledger files are parsed strictly.`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&statementFile, "statement-file", "", "bank statement file (required)")
	reconcileCmd.Flags().StringVar(&ledgerFile, "ledger-file", "", "ledger entries CSV file (required)")
	reconcileCmd.Flags().IntVar(&dateWindowHours, "date-window", 24, "date tolerance in hours")
	reconcileCmd.Flags().StringVar(&amountEpsilon, "amount-epsilon", "0.01", "amount tolerance in currency units")
	reconcileCmd.Flags().StringSliceVar(&cashKeywords, "cash-keywords", []string{"cash", "bank"}, "cash/bank account keywords")
	reconcileCmd.Flags().BoolVar(&requireCashAccount, "require-cash-account", false, "only match ledger entries touching a cash/bank account")
	reconcileCmd.Flags().BoolVar(&restrictMissing, "restrict-missing", false, "only report missing entries touching a cash/bank account")
	reconcileCmd.Flags().BoolVar(&nonExclusive, "non-exclusive", false, "allow one ledger entry to back several transactions (legacy behavior)")
	reconcileCmd.Flags().StringVar(&outputFormat, "output-format", "console", "output format: console, json, or csv")
	reconcileCmd.Flags().StringVar(&outputFile, "output-file", "", "write the report to a file instead of stdout")

	reconcileCmd.MarkFlagRequired("statement-file")
	reconcileCmd.MarkFlagRequired("ledger-file")

	viper.BindPFlag("date_window", reconcileCmd.Flags().Lookup("date-window"))
	viper.BindPFlag("amount_epsilon", reconcileCmd.Flags().Lookup("amount-epsilon"))
	viper.BindPFlag("cash_keywords", reconcileCmd.Flags().Lookup("cash-keywords"))
	viper.BindPFlag("require_cash_account", reconcileCmd.Flags().Lookup("require-cash-account"))
	viper.BindPFlag("restrict_missing", reconcileCmd.Flags().Lookup("restrict-missing"))
	viper.BindPFlag("output_format", reconcileCmd.Flags().Lookup("output-format"))
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	log, err := newLogger()
	if err != nil {
		return err
	}

	policy, err := buildPolicy()
	if err != nil {
		return err
	}

	log.WithComponent("cli").Debugf("using %s", policy)

	content, err := os.ReadFile(statementFile)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.FileError(apperrors.CodeFileNotFound, statementFile, err)
		}
		return apperrors.FileError(apperrors.CodeFileUnreadable, statementFile, err)
	}

	transactions, err := parsers.NormalizeStatement(string(content), parsers.DefaultStatementLayout())
	if err != nil {
		return apperrors.ConfigError(apperrors.CodeInvalidConfig, "invalid statement layout", err)
	}

	entries, err := parsers.NewLedgerParser().ParseFile(ledgerFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(policy, session.WithLogger(log))
	report, err := sess.Run(ctx, transactions, entries)
	if err != nil {
		return err
	}

	return writeReport(report)
}

// buildPolicy assembles the matching policy from viper-resolved settings, so
// flags, BANKRECON_* environment variables, and the config file all apply.
func buildPolicy() (*matcher.MatchingPolicy, error) {
	epsilon, err := decimal.NewFromString(viper.GetString("amount_epsilon"))
	if err != nil {
		return nil, apperrors.ConfigError(apperrors.CodeInvalidPolicy,
			fmt.Sprintf("unparseable amount epsilon %q", viper.GetString("amount_epsilon")), err)
	}

	policy := matcher.DefaultMatchingPolicy()
	policy.DateWindowHours = viper.GetInt("date_window")
	policy.AmountEpsilon = epsilon
	policy.CashKeywords = viper.GetStringSlice("cash_keywords")
	policy.RequireCashAccount = viper.GetBool("require_cash_account")
	policy.RestrictMissingToCashAccounts = viper.GetBool("restrict_missing")
	policy.ExclusiveAssignment = !nonExclusive

	if err := policy.Validate(); err != nil {
		return nil, apperrors.ConfigError(apperrors.CodeInvalidPolicy, "invalid matching policy", err)
	}

	return policy, nil
}

func newLogger() (logger.Logger, error) {
	cfg := logger.DefaultConfig()
	if viper.GetBool("verbose") {
		cfg = logger.DebugConfig()
	}

	log, err := logger.New(cfg)
	if err != nil {
		return nil, apperrors.ConfigError(apperrors.CodeInvalidConfig, "invalid logger configuration", err)
	}
	return log, nil
}

func writeReport(report *models.ReconciliationReport) error {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.Format(viper.GetString("output_format"))

	rep, err := reporter.New(config)
	if err != nil {
		return apperrors.ConfigError(apperrors.CodeInvalidConfig,
			fmt.Sprintf("invalid output format %q", viper.GetString("output_format")), err)
	}

	var out io.Writer = os.Stdout
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			return apperrors.FileError(apperrors.CodeFileUnreadable, outputFile, err)
		}
		defer file.Close()
		out = file
	}

	return rep.Write(out, report)
}
