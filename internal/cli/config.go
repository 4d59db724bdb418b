package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roboco-io/imgsize/internal/config"
	"github.com/roboco-io/imgsize/internal/diag"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage imgsize configuration.

Config file location: ~/.imgsize/config.yaml (override with --config or IMGSIZE_CONFIG)

Subcommands:
  show    show the current configuration
  init    create a default config file
  set     change a setting
  path    print the config file path`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	Long: `Show the configuration as stored in the config file.

Defaults are shown when no config file exists. Environment variables that
override settings are listed below the file contents. Header values are masked.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long: `Create a default config file.

Fails if the file already exists unless --force is given.`,
	RunE: runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a setting in the config file.

Supported keys:
  fetch.timeout        remote download timeout (e.g. 10s, 0 for none)
  fetch.max_redirects  redirect hops followed before giving up (at least 1)
  fetch.max_bytes      largest image body accepted, in bytes
  fetch.user_agent     User-Agent header for remote downloads
  log.level            diagnostic log level (debug, info, warn, error)
  log.format           diagnostic log format (text, json)
  log.file             append the diagnostic log to this file

Examples:
  imgsize config set fetch.timeout 15s
  imgsize config set log.format json`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		loader, err := newLoader()
		if err != nil {
			return fmt.Errorf("failed to initialize config loader: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), loader.ConfigPath())
		return nil
	},
}

var configForce bool

var configKeys = []string{
	"fetch.timeout",
	"fetch.max_redirects",
	"fetch.max_bytes",
	"fetch.user_agent",
	"log.level",
	"log.format",
	"log.file",
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return fmt.Errorf("failed to initialize config loader: %w", err)
	}

	cfg, err := loader.LoadRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	if loader.Exists() {
		fmt.Fprintf(out, "Config file: %s\n\n", loader.ConfigPath())
	} else {
		fmt.Fprintf(out, "Config file: (using defaults)\n\n")
	}

	masked := make(map[string]string, len(cfg.Fetch.Headers))
	for k, v := range cfg.Fetch.Headers {
		masked[k] = maskSecret(v)
	}
	cfg.Fetch.Headers = masked

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Fprintln(out, string(data))

	fmt.Fprintln(out, "Environment variables:")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	envVars := []struct {
		key  string
		desc string
	}{
		{config.ConfigPathEnv, "config file path"},
		{"IMGSIZE_LOG_LEVEL", "log level"},
		{"IMGSIZE_LOG_FORMAT", "log format"},
		{"IMGSIZE_VERBOSE", "debug logging"},
	}

	for _, ev := range envVars {
		status := "(not set)"
		if v := os.Getenv(ev.key); v != "" {
			status = v
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", ev.key, ev.desc, status)
	}
	return w.Flush()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return fmt.Errorf("failed to initialize config loader: %w", err)
	}

	if loader.Exists() && !configForce {
		return fmt.Errorf("config file already exists: %s\nuse --force to overwrite", loader.ConfigPath())
	}

	if err := loader.Save(config.DefaultConfig()); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", loader.ConfigPath())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	loader, err := newLoader()
	if err != nil {
		return fmt.Errorf("failed to initialize config loader: %w", err)
	}

	cfg, err := loader.LoadRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch key {
	case "fetch.timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d < 0 {
			return fmt.Errorf("invalid timeout: %s", value)
		}
		cfg.Fetch.Timeout = d

	case "fetch.max_redirects":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid redirect count: %s (must be at least 1)", value)
		}
		cfg.Fetch.MaxRedirects = n

	case "fetch.max_bytes":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid byte limit: %s", value)
		}
		cfg.Fetch.MaxBytes = n

	case "fetch.user_agent":
		cfg.Fetch.UserAgent = value

	case "log.level":
		if _, err := diag.ParseLevel(value); err != nil {
			return err
		}
		cfg.Log.Level = strings.ToLower(value)

	case "log.format":
		validFormats := []string{"text", "json"}
		if !contains(validFormats, value) {
			return fmt.Errorf("invalid log format: %s (supported: %s)", value, strings.Join(validFormats, ", "))
		}
		cfg.Log.Format = value

	case "log.file":
		cfg.Log.File = value

	default:
		return fmt.Errorf("unknown config key: %s\nsupported keys: %s", key, strings.Join(configKeys, ", "))
	}

	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updated: %s = %s\n", key, value)
	return nil
}

// maskSecret hides all but the edges of a header value such as a bearer token.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "****" + v[len(v)-4:]
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

