package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"invoice-reconciliation-service/cmd/reconciler/config"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	invoiceFile  string
	poFile       string
	outputFormat string
	outputFile   string
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile invoice lines with purchase-order lines",
	Long: `Reconcile links each invoice line item to the purchase-order line item(s)
it corresponds to, claims perfect amount matches, proportionally allocates
purchase-order totals across ambiguous customer groups, and reports the
amount delta per invoice line.

This command requires:
- An invoice line-item file (CSV or XLSX)
- A purchase-order line-item file (CSV or XLSX)

Examples:
  # Basic reconciliation to stdout (CSV)
  reconciler reconcile --invoice-file invoices.csv --po-file orders.csv

  # XLSX report
  reconciler reconcile --invoice-file invoices.xlsx --po-file orders.xlsx \
    --output-file Reconciled_Report.xlsx

  # JSON output for downstream tooling
  reconciler reconcile --invoice-file inv.csv --po-file po.csv --output-format json`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&invoiceFile, "invoice-file", "i", "", "path to invoice line-item file (required)")
	reconcileCmd.Flags().StringVarP(&poFile, "po-file", "p", "", "path to purchase-order line-item file (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "", "output format: csv, xlsx, json (default: by output file extension, else csv)")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("invoice-file")
	reconcileCmd.MarkFlagRequired("po-file")

	// Bind flags to viper
	viper.BindPFlag("invoice-file", reconcileCmd.Flags().Lookup("invoice-file"))
	viper.BindPFlag("po-file", reconcileCmd.Flags().Lookup("po-file"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	invoiceFile = viper.GetString("invoice-file")
	poFile = viper.GetString("po-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")

	if err := validateFileExists(invoiceFile, "invoice file"); err != nil {
		return err
	}
	if err := validateFileExists(poFile, "purchase-order file"); err != nil {
		return err
	}

	if outputFormat != "" && !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: csv, xlsx, json", outputFormat)
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	handler := NewCLIErrorHandler()

	invoiceTable, err := parsers.LoadTable(invoiceFile)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	poTable, err := parsers.LoadTable(poFile)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	engine, err := reconciler.NewEngine(config.CreateEngineConfig())
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	output, summary, err := engine.Reconcile(invoiceTable, poTable)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	reportConfig, err := config.CreateReportConfig(outputFormat, outputFile)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	rep, err := reporter.NewReporter(reportConfig)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	if outputFile != "" {
		if err := rep.WriteFile(outputFile, output); err != nil {
			os.Exit(handler.HandleError(err))
		}
	} else {
		if err := rep.WriteTable(os.Stdout, output); err != nil {
			os.Exit(handler.HandleError(err))
		}
	}

	printSummary(summary)
	return nil
}

func printSummary(summary *reconciler.Summary) {
	fmt.Fprintf(os.Stderr, "\nReconciliation summary:\n")
	fmt.Fprintf(os.Stderr, "  Invoice lines:    %d\n", summary.TotalInvoiceLines)
	fmt.Fprintf(os.Stderr, "  PO lines:         %d\n", summary.TotalPOLines)
	fmt.Fprintf(os.Stderr, "  Perfect matches:  %d\n", summary.PerfectMatches)
	fmt.Fprintf(os.Stderr, "  Allocated lines:  %d\n", summary.AllocatedLines)
	fmt.Fprintf(os.Stderr, "  Unmatched lines:  %d\n", summary.UnmatchedLines)
	fmt.Fprintf(os.Stderr, "  Total difference: %s\n", summary.TotalDifference.String())
}
