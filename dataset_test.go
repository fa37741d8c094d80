// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fivek

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataset(t *testing.T) {
	meta := Metadata{
		"a0002-second": {ID: 2, License: LicenseAdobe},
		"a0001-first": {
			ID:      1,
			License: LicenseAdobeMIT,
			Files:   Files{TIFF16: map[string]string{"c": "/data/processed/tiff16_c/a0001-first.tif"}},
		},
	}
	ds := FromMetadata(meta)
	require.Equal(t, 2, ds.Len())

	// Items come in stable basename order, with the basename injected.
	assert.Equal(t, "a0001-first", ds.At(0).Basename)
	assert.Equal(t, LicenseAdobeMIT, ds.At(0).License)
	assert.Equal(t, "a0002-second", ds.At(1).Basename)

	// The transform sees a copy and rewrites the delivered item only, even
	// when it writes into the item's maps.
	ds.WithTransform(func(item Item) Item {
		item.Files.DNG = path.Join("/elsewhere", item.Basename+".dng")
		item.Files.TIFF16["c"] = path.Join("/elsewhere", item.Basename+".tif")
		return item
	})
	assert.Equal(t, "/elsewhere/a0001-first.dng", ds.At(0).Files.DNG)
	assert.Equal(t, "/elsewhere/a0001-first.tif", ds.At(0).Files.TIFF16["c"])
	assert.Empty(t, meta["a0001-first"].Files.DNG)
	assert.Equal(t, "/data/processed/tiff16_c/a0001-first.tif", meta["a0001-first"].Files.TIFF16["c"])
}

func TestNewDatasetRequiresFiles(t *testing.T) {
	datasetDir := t.TempDir()
	builder := newTestBuilder(t, datasetDir, []string{"a"})
	registerDebugSplit(t)

	// Without download, missing files surface as not-found.
	_, err := NewDataset(builder, SplitDebug, false)
	assert.ErrorIs(t, err, ErrNotFound)

	ds, err := NewDataset(builder, SplitDebug, true)
	require.NoError(t, err)
	assert.Equal(t, 9, ds.Len())

	// Once built, the no-download path works.
	ds, err = NewDataset(builder, SplitDebug, false)
	require.NoError(t, err)
	assert.Equal(t, 9, ds.Len())
}
