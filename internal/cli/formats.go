package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/roboco-io/imgsize/internal/probe"
	"github.com/spf13/cobra"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List image formats whose dimensions can be read",
	Long: `List the image formats imgsize recognizes and whether their pixel size can be read.

Unsupported images are reported as unreadable and, inside a <picture>, skipped.`,
	Run: runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func runFormats(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "FORMAT\tEXTENSIONS\tSTATUS\tNOTE")

	for _, f := range probe.Formats() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			f.Name, strings.Join(f.Extensions, " "), formatStatus(f), f.Note)
	}
}

func formatStatus(f probe.FormatInfo) string {
	if f.Supported {
		return "✓ supported"
	}
	return "✗ unsupported"
}
