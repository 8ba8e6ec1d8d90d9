package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/stripvault/pkg/archive/config"
	"github.com/jamesainslie/stripvault/pkg/archive/logging"
	"github.com/jamesainslie/stripvault/pkg/archive/output"
)

var (
	cfgFile string
	cfg     *config.Config

	rootCmd = &cobra.Command{
		Use:   "stripvault",
		Short: "Keep a comic-strip archive complete and duplicate-free",
		Long: `stripvault maintains an archive of daily comic strips laid out as
<root>/<comic>/<yyyy>/<yyyy-MM-dd>.<ext>.

It finds dates missing from the archive, refuses images that repeat a strip
already archived under another date, and navigates a comic's archive.

Examples:
  stripvault backfill scan                       # List missing strips
  stripvault backfill import --from ~/downloads  # Archive staged strips
  stripvault nav last "Adam At Home"             # Newest archived strip
  stripvault hashes rebuild --year 2024          # Rehash a year
  stripvault archive stats -o json               # Archive summary as JSON`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Close()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/stripvault/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "pretty", "output format ("+strings.Join(output.Available(), ", ")+")")
	rootCmd.PersistentFlags().String("root", "", "archive root directory")
	rootCmd.PersistentFlags().String("registry", "", "comic registry file")
	rootCmd.PersistentFlags().String("db", "", "hash database directory")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// setup loads configuration, applies flag overrides, and starts logging.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		printError("Failed to load configuration: %v", err)
		return err
	}
	cfg = loaded

	flags := cmd.Flags()
	for flag, target := range map[string]*string{
		"root":     &cfg.Archive.Root,
		"registry": &cfg.Archive.Registry,
		"db":       &cfg.Hashes.DBPath,
	} {
		if flags.Changed(flag) {
			value, _ := flags.GetString(flag)
			if *target, err = config.ExpandPath(value); err != nil {
				return err
			}
		}
	}

	logCfg, err := cfg.LoggingConfig()
	if err != nil {
		return err
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}
	if err := logging.Init(logCfg); err != nil {
		printVerbose("logging disabled: %v", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// render writes v to stdout in the selected output format.
func render(cmd *cobra.Command, v output.View) error {
	formatter, err := output.Get(viper.GetString("output"))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, v); err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
