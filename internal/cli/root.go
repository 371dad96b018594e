package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=..."
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
	logger  = logrus.New()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "menusweep",
	Short: "menusweep - full menu capture for client-rendered storefronts",
	Long: `menusweep opens a delivery storefront in Chrome and sweeps it until no
new menu items appear: down the page, then across every horizontal
carousel. Each item is filed under the nearest category heading above it
and recorded once, however many times it scrolls into view.

Output is a JSON and Markdown report with a completeness index that shows
how much of the menu was captured and why.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogger(logger, os.Stderr, verbose || viper.GetBool("output.verbose"))
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "menusweep %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.menusweep/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func configureLogger(l *logrus.Logger, w io.Writer, debug bool) {
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setupViper(viper.GetViper(), cfgFile); err != nil {
		logger.WithError(err).Warn("Could not read config file")
	}
	if used := viper.ConfigFileUsed(); used != "" {
		logger.WithField("path", used).Debug("Using config file")
	}
}

// setupViper registers defaults, env bindings and the config file on v
func setupViper(v *viper.Viper, file string) error {
	if err := registerDefaults(v); err != nil {
		return err
	}

	v.SetEnvPrefix("MENUSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", "MENUSWEEP_LLM_API_KEY", "OPENAI_API_KEY")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(dir)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".menusweep"), nil
}
