package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roboco-io/imgsize/internal/imageref"
	"github.com/roboco-io/imgsize/internal/markup"
	"github.com/roboco-io/imgsize/internal/probe"
	"github.com/roboco-io/imgsize/internal/textbuf"
	"github.com/spf13/cobra"
)

var (
	inspectOpts   cursorOptions
	inspectFormat string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the image markup found at the cursor",
	Long: `Show what "size" and "lazy" would work on: the located tag or picture block,
its span, and the image reference each tag resolves to.

Nothing is downloaded or written.

Examples:
  imgsize inspect index.html --line 12 --col 8
  imgsize inspect index.html --offset 340 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	addCursorFlags(inspectCmd, &inspectOpts)
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "text", "output format (text, json)")

	rootCmd.AddCommand(inspectCmd)
}

// tagReport describes one tag and where its image lives.
type tagReport struct {
	Kind     string `json:"kind"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Raw      string `json:"raw"`
	Ref      string `json:"ref,omitempty"`
	Resolved string `json:"resolved,omitempty"`
	Remote   bool   `json:"remote"`
	Format   string `json:"format,omitempty"`
}

// inspectReport is the output of the inspect command.
type inspectReport struct {
	Kind          string           `json:"kind"`
	Start         int              `json:"start"`
	End           int              `json:"end"`
	StartPosition textbuf.Position `json:"start_position"`
	EndPosition   textbuf.Position `json:"end_position"`
	Tags          []tagReport      `json:"tags"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	buf, docPath, err := readDocument(cmd, args[0], inspectOpts.docPath)
	if err != nil {
		return err
	}

	offset, err := cursorOffset(buf, &inspectOpts)
	if err != nil {
		return err
	}

	m, ok := markup.Locate(buf.Text(), offset)
	if !ok {
		return fmt.Errorf("no <source>, <img> or <picture> tag at %s", buf.PositionAt(offset))
	}

	report := inspectReport{
		Kind:          m.Kind.String(),
		Start:         m.Span.Start,
		End:           m.Span.End,
		StartPosition: buf.PositionAt(m.Span.Start),
		EndPosition:   buf.PositionAt(m.Span.End),
	}

	tags := []markup.Match{m}
	if m.IsPicture() {
		tags = nil
		for _, tag := range markup.PictureTags(m.Raw) {
			tags = append(tags, tag.Shift(m.Span.Start))
		}
	}
	for _, tag := range tags {
		report.Tags = append(report.Tags, describeTag(tag, docPath))
	}

	output, err := formatReport(report, inspectFormat)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

func describeTag(tag markup.Match, docPath string) tagReport {
	r := tagReport{Kind: tag.Kind.String(), Start: tag.Span.Start, End: tag.Span.End, Raw: tag.Raw}
	ref, ok := imageref.Extract(tag.Raw)
	if !ok {
		return r
	}
	r.Ref = ref
	r.Resolved = imageref.Resolve(ref, docPath)
	r.Remote = imageref.IsRemote(r.Resolved)
	r.Format = probe.DetectFormat(r.Resolved).String()
	return r
}

func formatReport(report inspectReport, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil

	case "text":
		return formatReportAsText(report), nil

	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatReportAsText(report inspectReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s-%s (bytes %d-%d)\n", report.Kind, report.StartPosition, report.EndPosition, report.Start, report.End)

	if report.Kind == markup.KindPicture.String() && len(report.Tags) == 0 {
		sb.WriteString("  no <source> or <img> tags\n")
	}

	for i, tag := range report.Tags {
		fmt.Fprintf(&sb, "\n[%d] bytes %d-%d: %s\n", i+1, tag.Start, tag.End, tag.Raw)
		if tag.Ref == "" {
			sb.WriteString("    no src or srcset attribute\n")
			continue
		}
		fmt.Fprintf(&sb, "    ref:      %s\n", tag.Ref)
		fmt.Fprintf(&sb, "    resolved: %s\n", tag.Resolved)
		fmt.Fprintf(&sb, "    format:   %s\n", tag.Format)
	}

	return strings.TrimRight(sb.String(), "\n")
}
