// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fivek

import (
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Item is one dataset entry as delivered to training loops: the record plus
// its basename, which keys the metadata but is not stored inside the record.
type Item struct {
	Basename string
	Record
}

// Transform optionally rewrites an item before delivery, e.g. to make paths
// relative or to drop fields the training loop doesn't consume. It receives a
// copy, so it cannot corrupt the dataset.
type Transform func(item Item) Item

// Dataset is a thin indexable collection over resolved metadata, in a stable
// order (sorted by basename). It performs no I/O; decoding the DNG or TIFF
// files an item points at is the caller's business.
type Dataset struct {
	meta      Metadata
	basenames []string
	transform Transform
}

// NewDataset acquires the given split and wraps it as a Dataset. With
// download set it runs a full Builder.Build; otherwise it only resolves the
// metadata already on disk and fails with an ErrNotFound kind if the files
// are not all there.
func NewDataset(builder *Builder, split string, download bool) (*Dataset, error) {
	var meta Metadata
	var err error
	if download {
		meta, err = builder.Build(split)
	} else {
		meta, err = builder.Metadata(split)
	}
	if err != nil {
		return nil, err
	}
	if !download && !builder.CheckExists(meta) {
		return nil, errors.Wrapf(ErrNotFound,
			"dataset files for split %q not found under %q, use download to fetch them", split, builder.DatasetDir())
	}
	return FromMetadata(meta), nil
}

// FromMetadata wraps already-resolved metadata as a Dataset.
func FromMetadata(meta Metadata) *Dataset {
	basenames := maps.Keys(meta)
	sort.Strings(basenames)
	return &Dataset{meta: meta, basenames: basenames}
}

// WithTransform sets a per-item transform applied on delivery.
func (ds *Dataset) WithTransform(transform Transform) *Dataset {
	ds.transform = transform
	return ds
}

// Len returns the number of items.
func (ds *Dataset) Len() int { return len(ds.basenames) }

// At returns the item at index idx, 0 <= idx < Len, with the basename
// injected and the transform (if any) applied.
func (ds *Dataset) At(idx int) Item {
	basename := ds.basenames[idx]
	item := Item{Basename: basename, Record: *ds.meta[basename]}
	// The URL and file maps are cloned too, so the copy handed to the
	// transform shares nothing with the stored record.
	item.URLs.TIFF16 = maps.Clone(item.URLs.TIFF16)
	item.Files.TIFF16 = maps.Clone(item.Files.TIFF16)
	if ds.transform != nil {
		item = ds.transform(item)
	}
	return item
}
