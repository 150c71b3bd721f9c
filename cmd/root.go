package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bidon15/nftctl/internal/etherscan"
	"github.com/Bidon15/nftctl/internal/pinata"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Global flags
	cfgFile      string
	networkName  string
	rpcURL       string
	networksFile string
	artifactsDir string
	deployDir    string
	metricsAddr  string
	jsonOut      bool
	verbose      bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "nftctl",
	Short: "Deploy and exercise the random, dynamic and basic NFT collections",
	Long: `nftctl deploys the NFT collection contracts, uploads their images and
metadata to Pinata, and drives mints against deployed collections.

Configuration (in order of priority):
  1. Command-line flags (--network, --rpc-url, ...)
  2. Environment variables (PRIVATE_KEY, RPC_URL, PINATA_API_KEY,
     PINATA_API_SECRET, ETHERSCAN_API_KEY, UPLOAD_TO_PINATA, NFTCTL_*)
  3. Config file (~/.nftctl.yaml)

Get started:
  $ nftctl deploy --network localhost     # Deploy mocks and collections
  $ nftctl mint random                    # Request a random dog
  $ nftctl breed 42                       # Which dog does rng 42 give?`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return startMetricsServer(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nftctl version %s\n", Version)
	},
}

// Execute runs the root command. SIGINT cancels the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.nftctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&networkName, "network", "", "network name (default: detected from the RPC chain id)")
	rootCmd.PersistentFlags().StringVar(&rpcURL, "rpc-url", "", "JSON-RPC endpoint (or RPC_URL)")
	rootCmd.PersistentFlags().StringVar(&networksFile, "networks-file", "", "YAML file overriding network parameters")
	rootCmd.PersistentFlags().StringVar(&artifactsDir, "artifacts", "", "compiled contract artifacts dir (default \"artifacts\")")
	rootCmd.PersistentFlags().StringVar(&deployDir, "deployments", "", "deployment records dir (default \"deployments\")")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Add commands
	rootCmd.AddCommand(versionCmd)
}

// initConfig initializes viper configuration.
func initConfig() {
	// Set defaults
	viper.SetDefault("rpc_url", "http://127.0.0.1:8545")
	viper.SetDefault("artifacts", "artifacts")
	viper.SetDefault("deployments", "deployments")
	viper.SetDefault("random_images", "images/random")
	viper.SetDefault("dynamic_images", "images/dynamic")
	viper.SetDefault("mint_timeout", "2m")

	// Config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".nftctl")
		}
	}

	// Environment variables
	viper.SetEnvPrefix("NFTCTL")
	viper.AutomaticEnv()
	_ = viper.BindEnv("private_key", "NFTCTL_PRIVATE_KEY", "PRIVATE_KEY")
	_ = viper.BindEnv("rpc_url", "NFTCTL_RPC_URL", "RPC_URL")
	_ = viper.BindEnv("pinata_api_key", "NFTCTL_PINATA_API_KEY", "PINATA_API_KEY")
	_ = viper.BindEnv("pinata_api_secret", "NFTCTL_PINATA_API_SECRET", "PINATA_API_SECRET")
	_ = viper.BindEnv("etherscan_api_key", "NFTCTL_ETHERSCAN_API_KEY", "ETHERSCAN_API_KEY")
	_ = viper.BindEnv("upload_to_pinata", "NFTCTL_UPLOAD_TO_PINATA", "UPLOAD_TO_PINATA")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// flagOr returns the flag value when set, else the viper key.
func flagOr(flagValue, key string) string {
	if flagValue != "" {
		return flagValue
	}
	return viper.GetString(key)
}

// newLogger builds the CLI logger on stderr.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// configFilePath returns the default config file path.
func configFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nftctl.yaml"
	}
	return filepath.Join(home, ".nftctl.yaml")
}

// Output helpers

// printJSON outputs data as formatted JSON.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printError prints an error message.
func printError(err error) {
	var pinErr *pinata.APIError
	var scanErr *etherscan.APIError
	switch {
	case errors.As(err, &pinErr):
		fmt.Fprintf(os.Stderr, "%s %s\n", colorRed("Error:"), err.Error())
		fmt.Fprintf(os.Stderr, "  Status: %d\n", pinErr.StatusCode)
		if pinErr.IsUnauthorized() {
			fmt.Fprintln(os.Stderr, "  Check PINATA_API_KEY and PINATA_API_SECRET")
		}
	case errors.As(err, &scanErr):
		fmt.Fprintf(os.Stderr, "%s %s\n", colorRed("Error:"), scanErr.Message)
		if scanErr.Result != "" {
			fmt.Fprintf(os.Stderr, "  Result: %s\n", scanErr.Result)
		}
	default:
		fmt.Fprintf(os.Stderr, "%s %s\n", colorRed("Error:"), err.Error())
	}
}

// newTable creates a new tabwriter for formatted output.
func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

// printTableHeader prints a bold header row.
func printTableHeader(w *tabwriter.Writer, columns ...string) {
	for i, col := range columns {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, colorBold(col))
	}
	fmt.Fprintln(w)
}

// Terminal colors

func colorRed(s string) string {
	if !isTTY() {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

func colorGreen(s string) string {
	if !isTTY() {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

func colorYellow(s string) string {
	if !isTTY() {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}

func colorBold(s string) string {
	if !isTTY() {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func isTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// maskSecret masks a credential for display.
func maskSecret(s string) string {
	if s == "" {
		return colorYellow("(not set)")
	}
	if len(s) <= 12 {
		return "****"
	}
	return s[:6] + "..." + s[len(s)-4:]
}
