// Package cli implements the imgsize command line interface.
package cli

import (
	"fmt"
	"io"

	"github.com/roboco-io/imgsize/internal/config"
	"github.com/roboco-io/imgsize/internal/diag"
	"github.com/roboco-io/imgsize/internal/fetch"
	"github.com/roboco-io/imgsize/internal/sizer"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	rootVerbose bool
	rootQuiet   bool
	rootConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "imgsize",
	Short: "Set width and height on HTML image tags",
	Long: `imgsize finds the <img>, <source> or <picture> markup at a cursor position,
reads the pixel size of the referenced image (local file or remote URL) and
writes width/height attributes back into the tag.

Examples:
  imgsize size index.html --line 12 --col 8
  imgsize lazy index.html --offset 340 -w
  cat index.html | imgsize size - --offset 340 --doc-path index.html --format json`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "imgsize %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "debug-level diagnostic log")
	rootCmd.PersistentFlags().BoolVarP(&rootQuiet, "quiet", "q", false, "suppress success messages")
	rootCmd.PersistentFlags().StringVar(&rootConfig, "config", "", "config file (default ~/.imgsize/config.yaml)")

	rootCmd.AddCommand(versionCmd)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLoader returns the config loader selected by --config or the environment.
func newLoader() (*config.Loader, error) {
	if rootConfig != "" {
		return config.NewLoaderWithPath(rootConfig), nil
	}
	return config.NewLoader()
}

// newService loads configuration and wires the logger and fetcher into a sizer.
// The returned closer releases the diagnostic log.
func newService(stderr io.Writer) (*sizer.Service, io.Closer, error) {
	loader, err := newLoader()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize config loader: %w", err)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv()
	if rootVerbose {
		cfg.Log.Level = "debug"
	}

	logger, closer, err := diag.New(cfg.LogOptions(), stderr)
	if err != nil {
		return nil, nil, err
	}

	fetchOpts := cfg.FetchOptions()
	fetchOpts.Logger = logger
	if fetchOpts.UserAgent == fetch.DefaultUserAgent {
		fetchOpts.UserAgent = fetch.DefaultUserAgent + "/" + version
	}

	return sizer.New(fetch.New(fetchOpts), logger), closer, nil
}
