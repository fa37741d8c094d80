// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package fivek manages acquisition and indexing of the MIT-Adobe FiveK dataset
// (https://data.csail.mit.edu/graphics/fivek/): 5000 raw camera images in DNG format,
// each with five expert-retouched TIFF renditions and semantic annotations.
//
// The package downloads the files that are missing locally (with bounded retry on
// transient server errors) and exposes a stable mapping from an image basename
// (e.g. "a0298-IMG_5043") to its local file paths, category labels and license,
// partitioned into train/val/test/debug splits.
//
// Two physical layouts are supported, selected at Builder construction:
//
//   - PerCameraModel: each DNG lives in a directory named after its camera
//     make/model, and per-split JSON index files describe the records.
//   - Archive: DNGs live in fixed numeric-range buckets inside the extracted
//     official tar archive, and records are derived from the archive's flat
//     list and category files.
//
// Typical usage:
//
//	builder := must.M1(fivek.New("~/work/fivek", fivek.PerCameraModel, []string{"c"}))
//	meta := must.M1(builder.Build(fivek.SplitDebug))
//	for basename, record := range meta {
//		fmt.Println(basename, record.Files.DNG, record.Files.TIFF16["c"])
//	}
//
// This package does not decode or demosaic images; it only arranges for the
// files to exist and resolves their paths.
package fivek

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gomlx/fivek/pkg/support/sets"
	"github.com/pkg/errors"
)

// DefaultDirName is the directory created under a generic data root to hold the dataset.
const DefaultDirName = "MITAboveFiveK"

// MaxID is the largest numeric id embedded in a basename. Ids are in [1, MaxID].
const MaxID = 5000

// Split names of the dataset partitions. SplitDebug is a fixed 9-item subset
// of the training data, for fast iteration.
const (
	SplitTrain = "train"
	SplitVal   = "val"
	SplitTest  = "test"
	SplitDebug = "debug"
)

// Splits lists the valid split names.
var Splits = []string{SplitTrain, SplitVal, SplitTest, SplitDebug}

// Experts lists the five retouching experts, "a" to "e". Each produced one
// TIFF rendition per raw image.
var Experts = []string{"a", "b", "c", "d", "e"}

// ParseID extracts the numeric id embedded in a basename: "a0298-IMG_5043" -> 298.
// It fails if the basename has no id prefix or the id falls outside [1, MaxID].
func ParseID(basename string) (int, error) {
	prefix, _, found := strings.Cut(basename, "-")
	if !found || len(prefix) < 2 {
		return 0, errors.Wrapf(ErrMissingAttribute, "basename %q has no numeric id prefix", basename)
	}
	id, err := strconv.Atoi(prefix[1:])
	if err != nil {
		return 0, errors.Wrapf(ErrMissingAttribute, "basename %q has a malformed id prefix", basename)
	}
	if id < 1 || id > MaxID {
		return 0, errors.Wrapf(ErrMissingAttribute, "basename %q id %d is outside [1, %d]", basename, id, MaxID)
	}
	return id, nil
}

// ParseExperts normalizes a requested expert list: case-insensitive, duplicates
// removed, result sorted. Anything outside Experts fails with ErrConfiguration.
func ParseExperts(requested []string) ([]string, error) {
	valid := sets.MakeWith(Experts...)
	seen := sets.Make[string](len(requested))
	experts := make([]string, 0, len(requested))
	for _, e := range requested {
		e = strings.ToLower(strings.TrimSpace(e))
		if !valid.Has(e) {
			return nil, errors.Wrapf(ErrConfiguration, "invalid expert %q: experts are %q", e, Experts)
		}
		if seen.Has(e) {
			continue
		}
		seen.Insert(e)
		experts = append(experts, e)
	}
	sort.Strings(experts)
	return experts, nil
}
