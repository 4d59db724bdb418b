package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/roboco-io/imgsize/internal/sizer"
	"github.com/roboco-io/imgsize/internal/textbuf"
	"github.com/spf13/cobra"
)

// cursorOptions selects the document and the cursor inside it.
type cursorOptions struct {
	offset  int
	line    int
	col     int
	docPath string
}

// editOptions are the flags shared by the size and lazy commands.
type editOptions struct {
	cursorOptions
	write  bool
	format string
}

var (
	sizeOpts editOptions
	lazyOpts editOptions
)

var sizeCmd = &cobra.Command{
	Use:   "size <file>",
	Short: "Update width/height of the image tag at the cursor",
	Long: `Update width and height of the <img> or <source> tag at the cursor.

When the cursor is inside a <picture> opening tag, every <source> and <img>
in the block is updated. Tags whose image cannot be read are skipped.

Use "-" as the file to read the document from stdin. Relative image paths are
resolved against --doc-path (default: the file itself, or the working
directory for stdin).

Examples:
  imgsize size index.html --line 12 --col 8
  imgsize size index.html --offset 340 -w
  imgsize size - --offset 340 --doc-path site/index.html --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd, args[0], &sizeOpts, false)
	},
}

var lazyCmd = &cobra.Command{
	Use:   "lazy <file>",
	Short: `Update width/height and add loading="lazy"`,
	Long: `Update width and height like "size" and set loading="lazy" on every <img>
that is rewritten. <source> tags never get a loading attribute.

Examples:
  imgsize lazy index.html --line 12 --col 8 -w`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEdit(cmd, args[0], &lazyOpts, true)
	},
}

func init() {
	for _, c := range []struct {
		cmd  *cobra.Command
		opts *editOptions
	}{
		{sizeCmd, &sizeOpts},
		{lazyCmd, &lazyOpts},
	} {
		addCursorFlags(c.cmd, &c.opts.cursorOptions)
		c.cmd.Flags().BoolVarP(&c.opts.write, "write", "w", false, "write the result back to the file")
		c.cmd.Flags().StringVarP(&c.opts.format, "format", "f", "doc", "output format (doc, json)")
		rootCmd.AddCommand(c.cmd)
	}
}

func addCursorFlags(cmd *cobra.Command, opts *cursorOptions) {
	cmd.Flags().IntVar(&opts.offset, "offset", -1, "cursor byte offset")
	cmd.Flags().IntVar(&opts.line, "line", 0, "cursor line (1-based)")
	cmd.Flags().IntVar(&opts.col, "col", 1, "cursor column in characters (1-based)")
	cmd.Flags().StringVar(&opts.docPath, "doc-path", "", "document path used to resolve relative image paths")
}

// editOutput is the JSON form of an edit, for editors that apply it themselves.
type editOutput struct {
	Start         int              `json:"start"`
	End           int              `json:"end"`
	StartPosition textbuf.Position `json:"start_position"`
	EndPosition   textbuf.Position `json:"end_position"`
	Text          string           `json:"text"`
	Kind          string           `json:"kind"`
	Width         int              `json:"width,omitempty"`
	Height        int              `json:"height,omitempty"`
	Updated       int              `json:"updated"`
	Message       string           `json:"message"`
}

func runEdit(cmd *cobra.Command, input string, opts *editOptions, lazy bool) error {
	if opts.format != "doc" && opts.format != "json" {
		return fmt.Errorf("unsupported output format: %s", opts.format)
	}
	if opts.write && (input == "-" || opts.format == "json") {
		return errors.New("--write needs a file argument and --format doc")
	}

	buf, docPath, err := readDocument(cmd, input, opts.docPath)
	if err != nil {
		return err
	}

	offset, err := cursorOffset(buf, &opts.cursorOptions)
	if err != nil {
		return err
	}

	svc, closer, err := newService(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	req := sizer.Request{Text: buf.Text(), Offset: offset, DocumentPath: docPath}
	var edit *sizer.Edit
	if lazy {
		edit, err = svc.AddLazyLoading(cmd.Context(), req)
	} else {
		edit, err = svc.UpdateSize(cmd.Context(), req)
	}
	if err != nil {
		return errors.New(sizer.UserMessage(err))
	}

	updated, err := buf.Replace(edit.Span.Start, edit.Span.End, edit.Text)
	if err != nil {
		return err
	}

	switch {
	case opts.format == "json":
		if err := writeEditJSON(cmd.OutOrStdout(), buf, edit); err != nil {
			return err
		}
	case opts.write:
		if err := writeFilePreservingMode(input, []byte(updated)); err != nil {
			return fmt.Errorf("failed to save file: %w", err)
		}
	default:
		fmt.Fprint(cmd.OutOrStdout(), updated)
	}

	if !rootQuiet {
		fmt.Fprintln(cmd.ErrOrStderr(), edit.Message())
	}
	return nil
}

// readDocument loads the buffer from a file or stdin and picks the path that
// relative image references resolve against.
func readDocument(cmd *cobra.Command, input, docPath string) (*textbuf.Buffer, string, error) {
	var data []byte
	var err error

	if input == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if docPath == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, "", fmt.Errorf("failed to get working directory: %w", err)
			}
			docPath = filepath.Join(wd, "stdin")
		}
	} else {
		data, err = os.ReadFile(input)
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("file not found: %s", input)
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read file: %w", err)
		}
		if docPath == "" {
			docPath = input
		}
	}

	if abs, err := filepath.Abs(docPath); err == nil {
		docPath = abs
	}
	return textbuf.New(string(data)), docPath, nil
}

// cursorOffset converts --offset or --line/--col into a byte offset.
func cursorOffset(buf *textbuf.Buffer, opts *cursorOptions) (int, error) {
	switch {
	case opts.offset >= 0:
		if opts.offset > len(buf.Text()) {
			return 0, fmt.Errorf("offset %d past end of document (%d bytes)", opts.offset, len(buf.Text()))
		}
		return opts.offset, nil
	case opts.line > 0:
		return buf.OffsetAt(textbuf.Position{Line: opts.line, Column: opts.col})
	default:
		return 0, errors.New("cursor position required: use --offset or --line/--col")
	}
}

func writeEditJSON(w io.Writer, buf *textbuf.Buffer, edit *sizer.Edit) error {
	out := editOutput{
		Start:         edit.Span.Start,
		End:           edit.Span.End,
		StartPosition: buf.PositionAt(edit.Span.Start),
		EndPosition:   buf.PositionAt(edit.Span.End),
		Text:          edit.Text,
		Kind:          edit.Kind.String(),
		Width:         edit.Width,
		Height:        edit.Height,
		Updated:       edit.Updated,
		Message:       edit.Message(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeFilePreservingMode(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	return os.WriteFile(path, data, mode)
}
