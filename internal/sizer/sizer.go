// Package sizer computes the edit that sets width, height and optionally
// loading="lazy" on the image markup under a cursor.
//
// The package never touches a buffer. Callers pass the document text and receive a
// single replacement span and text, which they apply themselves.
package sizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/roboco-io/imgsize/internal/imageref"
	"github.com/roboco-io/imgsize/internal/markup"
	"github.com/roboco-io/imgsize/internal/probe"
)

// Fetcher downloads remote images.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Request is one command invocation against a document snapshot.
type Request struct {
	Text         string // full document text
	Offset       int    // cursor byte offset
	DocumentPath string // path of the document, for relative references
}

// Edit is the replacement produced by a successful invocation.
type Edit struct {
	Span    markup.Span `json:"span"`
	Text    string      `json:"text"`
	Kind    markup.Kind `json:"kind"`
	Width   int         `json:"width,omitempty"`  // single tag only
	Height  int         `json:"height,omitempty"` // single tag only
	Updated int         `json:"updated"`          // tags rewritten
	Lazy    bool        `json:"lazy"`
}

// Message is the success notification for the edit.
func (e *Edit) Message() string {
	var msg string
	switch {
	case e.Kind == markup.KindPicture:
		msg = fmt.Sprintf("Updated %d image tag(s) in <picture>", e.Updated)
	case e.Lazy:
		return fmt.Sprintf(`Updated: %dx%d + loading="lazy"`, e.Width, e.Height)
	default:
		return fmt.Sprintf("Updated image size: %dx%d", e.Width, e.Height)
	}
	if e.Lazy {
		msg += ` + loading="lazy"`
	}
	return msg
}

// Service runs the locate, resolve, probe and rewrite pipeline.
type Service struct {
	fetcher Fetcher
	log     *slog.Logger
}

// New creates a Service. A nil logger discards diagnostics.
func New(fetcher Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{fetcher: fetcher, log: logger}
}

// UpdateSize sets width and height on the tag or picture block under the cursor.
func (s *Service) UpdateSize(ctx context.Context, req Request) (*Edit, error) {
	return s.run(ctx, req, false)
}

// AddLazyLoading sets width and height like UpdateSize and also sets
// loading="lazy" on every <img> it rewrites. <source> tags never get it.
func (s *Service) AddLazyLoading(ctx context.Context, req Request) (*Edit, error) {
	return s.run(ctx, req, true)
}

func (s *Service) run(ctx context.Context, req Request, lazy bool) (*Edit, error) {
	m, ok := markup.Locate(req.Text, req.Offset)
	if !ok {
		s.log.Info("no enclosing tag", "offset", req.Offset)
		return nil, ErrNoEnclosingTag
	}

	s.log.Info("found tag", "kind", m.Kind.String(), "start", m.Span.Start, "end", m.Span.End, "bytes", m.Span.Len())
	s.log.Debug("tag text", "tag", m.Raw)

	if m.IsPicture() {
		return s.rewritePicture(ctx, m, req.DocumentPath, lazy)
	}
	return s.rewriteTag(ctx, m, req.DocumentPath, lazy)
}

func (s *Service) rewriteTag(ctx context.Context, m markup.Match, docPath string, lazy bool) (*Edit, error) {
	dims, err := s.dimensions(ctx, m, docPath)
	if err != nil {
		return nil, err
	}

	text := markup.SetDimensions(m.Raw, dims.Width, dims.Height)
	if lazy && m.Kind == markup.KindImg {
		text = markup.SetLoadingLazy(text)
	}

	return &Edit{
		Span:    m.Span,
		Text:    text,
		Kind:    m.Kind,
		Width:   dims.Width,
		Height:  dims.Height,
		Updated: 1,
		Lazy:    lazy && m.Kind == markup.KindImg,
	}, nil
}

// rewritePicture sizes every nested tag in source order. Failing tags are skipped.
// Each rewritten tag replaces the first occurrence of its original text in the
// block, so byte-identical duplicate tags are not told apart.
func (s *Service) rewritePicture(ctx context.Context, m markup.Match, docPath string, lazy bool) (*Edit, error) {
	tags := markup.PictureTags(m.Raw)
	if len(tags) == 0 {
		s.log.Warn("picture has no source or img tags", "start", m.Span.Start)
		return nil, ErrNoTagsInPicture
	}

	block := m.Raw
	updated := 0
	lazied := false
	for _, tag := range tags {
		dims, err := s.dimensions(ctx, tag, docPath)
		if err != nil {
			s.log.Warn("skipping tag", "kind", tag.Kind.String(), "tag", tag.Raw, "error", err)
			continue
		}

		text := markup.SetDimensions(tag.Raw, dims.Width, dims.Height)
		if lazy && tag.Kind == markup.KindImg {
			text = markup.SetLoadingLazy(text)
			lazied = true
		}
		block = strings.Replace(block, tag.Raw, text, 1)
		updated++
	}

	if updated == 0 {
		s.log.Warn("no tag in picture could be sized", "tags", len(tags))
		return nil, ErrAllTagsFailedInPicture
	}

	s.log.Info("updated picture", "updated", updated, "tags", len(tags))
	return &Edit{
		Span:    m.Span,
		Text:    block,
		Kind:    markup.KindPicture,
		Updated: updated,
		Lazy:    lazied,
	}, nil
}

// dimensions resolves the image behind a single tag and probes it.
func (s *Service) dimensions(ctx context.Context, tag markup.Match, docPath string) (probe.Dimensions, error) {
	ref, ok := imageref.Extract(tag.Raw)
	if !ok {
		s.log.Warn("no src or srcset attribute", "tag", tag.Raw)
		return probe.Dimensions{}, ErrNoImageReference
	}
	s.log.Debug("extracted reference", "ref", ref)

	resolved := imageref.Resolve(ref, docPath)
	s.log.Info("resolved image path", "ref", ref, "path", resolved)

	var (
		dims   probe.Dimensions
		format string
		err    error
	)
	if imageref.IsRemote(resolved) {
		dims, format, err = s.probeRemote(ctx, resolved)
	} else {
		dims, format, err = s.probeLocal(resolved)
	}
	if err != nil {
		return probe.Dimensions{}, err
	}

	s.log.Info("image dimensions", "path", resolved, "format", format, "width", dims.Width, "height", dims.Height)
	return dims, nil
}

func (s *Service) probeRemote(ctx context.Context, url string) (probe.Dimensions, string, error) {
	if s.fetcher == nil {
		return probe.Dimensions{}, "", &RefError{Ref: url, Err: fmt.Errorf("%w: remote fetching disabled", ErrRemoteFetchFailed)}
	}

	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.log.Warn("failed to download image", "url", url, "error", err)
		return probe.Dimensions{}, "", &RefError{Ref: url, Err: fmt.Errorf("%w: %w", ErrRemoteFetchFailed, err)}
	}

	dims, format, err := probe.FromBytes(data)
	if err != nil {
		s.log.Warn("image dimensions not found in downloaded image", "url", url, "bytes", len(data), "error", err)
		return probe.Dimensions{}, "", &RefError{Ref: url, Err: fmt.Errorf("%w: %w", ErrUnreadableImageFormat, err)}
	}
	return dims, format, nil
}

func (s *Service) probeLocal(path string) (probe.Dimensions, string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("local file not found", "path", path)
		return probe.Dimensions{}, "", &RefError{Ref: path, Err: ErrLocalFileMissing}
	}
	if err == nil && info.IsDir() {
		err = fmt.Errorf("%s is a directory", path)
	}
	if err != nil {
		s.log.Warn("cannot read local file", "path", path, "error", err)
		return probe.Dimensions{}, "", &RefError{Ref: path, Err: fmt.Errorf("%w: %w", ErrUnreadableImageFormat, err)}
	}

	dims, format, err := probe.FromFile(path)
	if err != nil {
		s.log.Warn("image dimensions not found in local file", "path", path, "error", err)
		return probe.Dimensions{}, "", &RefError{Ref: path, Err: fmt.Errorf("%w: %w", ErrUnreadableImageFormat, err)}
	}
	return dims, format, nil
}
