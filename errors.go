// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fivek

import "github.com/pkg/errors"

// Error kinds returned by this package, matched with errors.Is.
// Transport-level kinds (download, extraction) live in the downloader package.
var (
	// ErrConfiguration indicates an invalid construction parameter: an unknown
	// layout mode or expert name. It fails fast at call time and is never retried.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrNotFound indicates a split name outside {train, val, test, debug},
	// or dataset files missing on disk when no download was requested.
	ErrNotFound = errors.New("not found")

	// ErrMissingAttribute indicates index data inconsistent with the expected
	// schema, e.g. camera info absent in the per-camera-model layout or a
	// listed identifier without a categories entry in the archive layout.
	ErrMissingAttribute = errors.New("missing attribute")

	// ErrBuild indicates a failed build: either a file download failed, or the
	// post-download completeness check found files missing. A fresh Build call
	// (possibly with WithRedownload) is safe, as existing files are skipped.
	ErrBuild = errors.New("error building dataset")
)

// buildFailure marks an error as a build failure while preserving its cause,
// so that both errors.Is(err, ErrBuild) and errors.Is(err, <cause kind>) hold.
type buildFailure struct {
	cause error
	url   string
}

func (e *buildFailure) Error() string {
	return "error building dataset: downloading " + e.url + ": " + e.cause.Error()
}

func (e *buildFailure) Unwrap() []error {
	return []error{ErrBuild, e.cause}
}

// buildFailed wraps a download error from the given url as a build failure.
func buildFailed(cause error, url string) error {
	return &buildFailure{cause: cause, url: url}
}
