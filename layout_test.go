// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fivek

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLayout(t *testing.T) {
	layout, err := newLayout(PerCameraModel, "/data")
	require.NoError(t, err)
	assert.IsType(t, &perCameraModelLayout{}, layout)

	layout, err = newLayout(Archive, "/data")
	require.NoError(t, err)
	assert.IsType(t, &archiveLayout{}, layout)

	_, err = newLayout("zip", "/data")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestPerCameraModelRawPath(t *testing.T) {
	layout := &perCameraModelLayout{datasetDir: "/data/MITAboveFiveK"}
	record := &Record{Camera: &Camera{Make: "Canon", Model: "EOS-1D Mark II"}}
	rawPath, err := layout.RawPath("a1527-20041010_072954__E6B5620", record)
	require.NoError(t, err)
	// Spaces in the camera name become underscores.
	assert.Equal(t,
		"/data/MITAboveFiveK/raw/Canon_EOS-1D_Mark_II/a1527-20041010_072954__E6B5620.dng",
		rawPath)

	// Camera info is required by this layout.
	_, err = layout.RawPath("a1527-20041010_072954__E6B5620", &Record{})
	assert.ErrorIs(t, err, ErrMissingAttribute)
	_, err = layout.RawPath("a1527-20041010_072954__E6B5620", nil)
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestArchiveRawPath(t *testing.T) {
	layout := &archiveLayout{datasetDir: "/data/MITAboveFiveK"}
	rawPath, err := layout.RawPath("a0001-jmac_DSC1459", nil)
	require.NoError(t, err)
	assert.Equal(t,
		"/data/MITAboveFiveK/raw/fivek_dataset/raw_photos/HQa1to700/photos/a0001-jmac_DSC1459.dng",
		rawPath)

	rawPath, err = layout.RawPath("a1401-irregular", nil)
	require.NoError(t, err)
	assert.Contains(t, rawPath, "/raw_photos/HQa1400to2100/photos/")

	_, err = layout.RawPath("not-a-basename", nil)
	assert.ErrorIs(t, err, ErrMissingAttribute)
}

func TestExpertPath(t *testing.T) {
	for _, layout := range []Layout{
		&perCameraModelLayout{datasetDir: "/data/MITAboveFiveK"},
		&archiveLayout{datasetDir: "/data/MITAboveFiveK"},
	} {
		// Expert renditions live in the same place in both layouts.
		assert.Equal(t,
			"/data/MITAboveFiveK/processed/tiff16_c/a0298-IMG_5043.tif",
			layout.ExpertPath("a0298-IMG_5043", "c"))
	}
}
