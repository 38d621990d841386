// Package config builds component configurations for the CLI from flags,
// environment variables, and the optional config file.
package config

import (
	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/parsers"
	"invoice-reconciliation-service/internal/reconciler"
	"invoice-reconciliation-service/internal/reporter"
	"invoice-reconciliation-service/internal/store"
	"invoice-reconciliation-service/pkg/errors"

	"github.com/spf13/viper"
)

// CreateEngineConfig creates the reconciliation engine configuration with
// the default schema bindings and matching rules.
func CreateEngineConfig() *reconciler.Config {
	return &reconciler.Config{
		Matching:      matcher.DefaultMatchingConfig(),
		InvoiceParser: parsers.DefaultInvoiceParserConfig(),
		POParser:      parsers.DefaultPOParserConfig(),
	}
}

// CreateReportConfig creates a report configuration for the requested output
// format, falling back to extension detection when outputFile is set and no
// explicit format was given.
func CreateReportConfig(format, outputFile string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()

	if format != "" {
		config.Format = reporter.OutputFormat(format)
	} else if outputFile != "" {
		config.Format = reporter.FormatFromPath(outputFile)
	}

	if !config.Format.IsValid() {
		return nil, errors.ConfigError(errors.CodeInvalidConfig, "output-format", nil).
			WithContext("format", format).
			WithSuggestion("supported formats are csv, xlsx, json")
	}

	return config, nil
}

// CreateStoreConfig creates the document store configuration from the
// environment (RECONCILER_STORE_* variables) or the config file.
func CreateStoreConfig() (*store.Config, error) {
	config := store.DefaultConfig()

	config.BaseURL = viper.GetString("store_base_url")
	config.TokenURL = viper.GetString("store_token_url")
	config.ClientID = viper.GetString("store_client_id")
	config.ClientSecret = viper.GetString("store_client_secret")

	if folder := viper.GetString("store_output_folder"); folder != "" {
		config.OutputFolder = folder
	}
	if timeout := viper.GetDuration("store_timeout"); timeout > 0 {
		config.Timeout = timeout
	}

	if config.BaseURL == "" {
		return nil, errors.ConfigError(errors.CodeMissingConfig, "store_base_url", nil).
			WithSuggestion("set RECONCILER_STORE_BASE_URL to the document store site URL")
	}

	return config, nil
}
