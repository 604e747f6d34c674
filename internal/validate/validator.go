package validate

import (
	"fmt"
	"slices"

	"github.com/unimarket/image-uploader/internal/model"
)

// Options bounds a batch of selected files before they are staged.
type Options struct {
	MaxSizeMB         int64
	AcceptedMimeTypes []string
	MaxCount          int
}

// Result partitions a selection into files that may be staged and the
// reasons the rest were rejected. A rejected file never blocks staging of
// the remaining valid ones.
type Result struct {
	Valid  []model.SelectedFile
	Errors []error
}

// FileError rejects a single file and always names it.
type FileError struct {
	Filename string
	Reason   string
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s", e.Filename, e.Reason)
}

// CountError reports that the selection exceeded the per-batch limit.
// The files beyond the limit are dropped, not individually rejected.
type CountError struct {
	Max int
	Got int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("selected %d files, only the first %d were kept", e.Got, e.Max)
}

// Validate checks each selected file against opts and returns the valid
// files in their original selection order.
func Validate(files []model.SelectedFile, opts Options) Result {
	var res Result

	if opts.MaxCount > 0 && len(files) > opts.MaxCount {
		res.Errors = append(res.Errors, &CountError{Max: opts.MaxCount, Got: len(files)})
		files = files[:opts.MaxCount]
	}

	maxBytes := opts.MaxSizeMB * 1024 * 1024

	for _, f := range files {
		if maxBytes > 0 && f.Size > maxBytes {
			res.Errors = append(res.Errors, &FileError{
				Filename: f.Name,
				Reason:   fmt.Sprintf("exceeds the maximum size of %d MB", opts.MaxSizeMB),
			})
			continue
		}
		if len(opts.AcceptedMimeTypes) > 0 && !slices.Contains(opts.AcceptedMimeTypes, f.ContentType) {
			res.Errors = append(res.Errors, &FileError{
				Filename: f.Name,
				Reason:   fmt.Sprintf("unsupported type %q", f.ContentType),
			})
			continue
		}
		res.Valid = append(res.Valid, f)
	}

	return res
}

// Partition splits validation errors into batch-level count warnings and
// per-file errors.
func Partition(errs []error) (countErrs []*CountError, fileErrs []*FileError) {
	for _, err := range errs {
		switch e := err.(type) {
		case *CountError:
			countErrs = append(countErrs, e)
		case *FileError:
			fileErrs = append(fileErrs, e)
		}
	}
	return countErrs, fileErrs
}

// maxDisplayedFileErrors caps how many per-file rejections are spelled out
// to the user; the rest are folded into a summary line.
const maxDisplayedFileErrors = 3

// DisplayMessages renders validation errors for the user: count warnings
// first, then up to three per-file errors plus a summary of the remainder.
func DisplayMessages(errs []error) []string {
	countErrs, fileErrs := Partition(errs)

	var msgs []string
	for _, e := range countErrs {
		msgs = append(msgs, e.Error())
	}

	shown := len(fileErrs)
	if shown > maxDisplayedFileErrors {
		shown = maxDisplayedFileErrors
	}
	for _, e := range fileErrs[:shown] {
		msgs = append(msgs, e.Error())
	}
	if rest := len(fileErrs) - shown; rest > 0 {
		msgs = append(msgs, fmt.Sprintf("and %d more files were rejected", rest))
	}

	return msgs
}
