package sizer

import (
	"errors"
	"fmt"

	"github.com/roboco-io/imgsize/internal/fetch"
	"github.com/roboco-io/imgsize/internal/probe"
)

var (
	ErrNoEnclosingTag         = errors.New("cursor is not inside a <source>, <img> or <picture> tag")
	ErrNoImageReference       = errors.New("tag has no src or srcset attribute")
	ErrLocalFileMissing       = errors.New("image file not found")
	ErrUnreadableImageFormat  = errors.New("could not read image dimensions")
	ErrRemoteFetchFailed      = errors.New("failed to download image")
	ErrNoTagsInPicture        = errors.New("no <source> or <img> tags found in <picture>")
	ErrAllTagsFailedInPicture = errors.New("no image in <picture> could be sized")
)

// UserMessage turns an error from Service into a short actionable message.
func UserMessage(err error) string {
	var fetchErr *fetch.Error

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoEnclosingTag):
		return "Cursor is not inside a <source>, <img> or <picture> tag"
	case errors.Is(err, ErrNoImageReference):
		return "No valid image source found. Please ensure the tag has a src or srcset attribute."
	case errors.Is(err, ErrLocalFileMissing):
		return fmt.Sprintf("Image file not found: %s\n\nPlease ensure the image file exists at this location.", pathOf(err))
	case errors.Is(err, ErrUnreadableImageFormat):
		if probe.DetectFormat(pathOf(err)) == probe.FormatVector {
			return fmt.Sprintf("Could not read image dimensions from: %s\n\nVector images have no intrinsic pixel size.", pathOf(err))
		}
		return fmt.Sprintf("Could not read image dimensions from: %s\n\nThe file exists but may be corrupted or in an unsupported format.", pathOf(err))
	case errors.As(err, &fetchErr) && fetchErr.StatusCode != 0:
		return fmt.Sprintf("Failed to download image: %s (HTTP %d)", fetchErr.URL, fetchErr.StatusCode)
	case errors.Is(err, ErrRemoteFetchFailed):
		return fmt.Sprintf("Failed to download image: %s", pathOf(err))
	case errors.Is(err, ErrNoTagsInPicture):
		return "No <source> or <img> tags found in <picture>"
	case errors.Is(err, ErrAllTagsFailedInPicture):
		return "Could not read dimensions for any image in <picture>. See the log for details."
	default:
		return fmt.Sprintf("Failed to update image size: %v", err)
	}
}

// RefError attaches the image reference to a failure.
type RefError struct {
	Ref string
	Err error
}

func (e *RefError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Ref)
}

func (e *RefError) Unwrap() error {
	return e.Err
}

func pathOf(err error) string {
	var refErr *RefError
	if errors.As(err, &refErr) {
		return refErr.Ref
	}
	return ""
}
