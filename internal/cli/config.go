package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/menusweep/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage menusweep configuration",
	Long: `Manage menusweep configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (MENUSWEEP_*, e.g. MENUSWEEP_SWEEP_VERTICAL_MAX_STEPS)
3. Config file (~/.menusweep/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", used)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (defaults and environment)\n\n")
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Long:  `Create ~/.menusweep/config.yaml (or the --config path) holding every option at its default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			dir, err := configDir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, "config.yaml")
		}

		if err := writeDefaultConfig(path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created default configuration: %s\n", path)
		fmt.Fprintf(cmd.OutOrStdout(), "View it with: menusweep config show\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

const configHeader = `# menusweep configuration
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (MENUSWEEP_<SECTION>_<KEY>)
#   3. This config file
#   4. Built-in defaults
#
# The LLM API key is read from MENUSWEEP_LLM_API_KEY or OPENAI_API_KEY only.

`

// writeDefaultConfig writes the defaults to path, refusing to overwrite
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// registerDefaults teaches v every key of the default config so that
// environment variables can override keys the file does not mention
func registerDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	setDefaults(v, "", tree)
	// omitempty keys are missing from the marshalled defaults
	for _, key := range optionalKeys {
		if !v.IsSet(key) {
			v.SetDefault(key, "")
		}
	}
	return nil
}

var optionalKeys = []string{
	"browser.remote_url",
	"browser.user_data_dir",
	"browser.resource_blocking",
	"http.http_proxy",
	"http.https_proxy",
	"http.no_proxy",
	"store.path",
	"llm.provider",
	"llm.model",
	"llm.api_key",
	"llm.base_url",
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for key, val := range tree {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if sub, ok := val.(map[string]interface{}); ok {
			setDefaults(v, full, sub)
			continue
		}
		v.SetDefault(full, val)
	}
}

// loadConfig builds the effective configuration from v on top of the defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func storePath(cfg *model.Config) string {
	if cfg.Store.Path != "" {
		return cfg.Store.Path
	}
	dir, err := configDir()
	if err != nil {
		return "menusweep-history.db"
	}
	return filepath.Join(dir, "history.db")
}
