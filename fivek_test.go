// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fivek

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := ParseID("a0298-IMG_5043")
	require.NoError(t, err)
	assert.Equal(t, 298, id)

	id, err = ParseID("a5000-kme_1082")
	require.NoError(t, err)
	assert.Equal(t, MaxID, id)

	for _, basename := range []string{
		"a0001-jmac_DSC1459",
		"a1527-20041010_072954__E6B5620",
		"a4337-kme_1082",
	} {
		id, err := ParseID(basename)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, id, 1)
		assert.LessOrEqual(t, id, MaxID)
	}

	// Out of range or malformed prefixes.
	for _, basename := range []string{"a0000-zero", "a5001-above", "noprefix", "a-empty", "axxxx-chars"} {
		_, err := ParseID(basename)
		assert.ErrorIs(t, err, ErrMissingAttribute, "basename %q", basename)
	}
}

func TestParseExperts(t *testing.T) {
	experts, err := ParseExperts(nil)
	require.NoError(t, err)
	assert.Empty(t, experts)

	// Case-insensitive, deduplicated, sorted.
	experts, err = ParseExperts([]string{"C", "a", "c", "E"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "e"}, experts)

	_, err = ParseExperts([]string{"a", "f"})
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = ParseExperts([]string{""})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestArchiveBucket(t *testing.T) {
	tests := []struct {
		id     int
		bucket string
	}{
		{1, "HQa1to700"},
		{700, "HQa1to700"},
		{701, "HQa701to1400"},
		{1400, "HQa701to1400"},
		// The window starting at 1401 is named irregularly upstream.
		{1401, "HQa1400to2100"},
		{2100, "HQa1400to2100"},
		{2101, "HQa2101to2800"},
		{3501, "HQa3501to4200"},
		{4200, "HQa3501to4200"},
		{4201, "HQa4201to5000"},
		{5000, "HQa4201to5000"},
	}
	for _, test := range tests {
		assert.Equal(t, test.bucket, archiveBucket(test.id), "id=%d", test.id)
	}
}

func TestArchiveBucketCoversAllIDs(t *testing.T) {
	layout := &archiveLayout{datasetDir: "/data"}
	for id := 1; id <= MaxID; id++ {
		basename := fmt.Sprintf("a%04d-test", id)
		rawPath, err := layout.RawPath(basename, nil)
		require.NoError(t, err)
		assert.NotEmpty(t, rawPath)
	}
}
