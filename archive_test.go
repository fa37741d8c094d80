// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fivek

import (
	"archive/tar"
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/gomlx/fivek/downloader"
	"github.com/gomlx/fivek/pkg/support/fsutil"
	"github.com/jarcoal/httpmock"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestArchive returns a tar archive with the layout of the official
// dataset tarball: list and category files plus bucketed DNG photos.
func buildTestArchive(t *testing.T) []byte {
	t.Helper()
	files := []struct{ name, content string }{
		{"fivek_dataset/filesAdobe.txt", "a0001-jmac_DSC1459\n"},
		{"fivek_dataset/filesAdobeMIT.txt", "a0701-dgw_005\n"},
		{"fivek_dataset/categories.txt",
			"a0001-jmac_DSC1459,outdoor,day,sun_sky,nature\na0701-dgw_005,indoor,None,artificial,people\n"},
		{"fivek_dataset/raw_photos/HQa1to700/photos/a0001-jmac_DSC1459.dng", "dng-bytes"},
		{"fivek_dataset/raw_photos/HQa701to1400/photos/a0701-dgw_005.dng", "dng-bytes"},
	}
	var buf bytes.Buffer
	w := tar.NewWriter(&buf)
	for _, file := range files {
		must.M(w.WriteHeader(&tar.Header{
			Name: file.name,
			Mode: 0666,
			Size: int64(len(file.content)),
		}))
		must.M1(w.Write([]byte(file.content)))
	}
	must.M(w.Close())
	return buf.Bytes()
}

func TestBuildArchiveMode(t *testing.T) {
	datasetDir := t.TempDir()
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	policy := downloader.DefaultRetryPolicy()
	policy.Backoff = time.Millisecond
	fetcher := downloader.NewFetcher().WithClient(client).WithPolicy(policy)

	httpmock.RegisterResponder("GET", ArchiveURL,
		httpmock.NewBytesResponder(200, buildTestArchive(t)))
	for _, basename := range []string{"a0001-jmac_DSC1459", "a0701-dgw_005"} {
		httpmock.RegisterResponder("GET", tiff16URL(basename, "c"),
			httpmock.NewStringResponder(200, "tiff-bytes"))
	}

	builder := must.M1(New(datasetDir, Archive, []string{"c"})).WithFetcher(fetcher)
	meta, err := builder.Build("")
	require.NoError(t, err)
	require.Len(t, meta, 2)

	r := meta["a0001-jmac_DSC1459"]
	assert.Equal(t, LicenseAdobe, r.License)
	assert.Contains(t, r.Files.DNG, "raw_photos/HQa1to700/photos/")
	assert.True(t, fsutil.MustFileExists(r.Files.DNG))
	assert.True(t, fsutil.MustFileExists(r.Files.TIFF16["c"]))

	r = meta["a0701-dgw_005"]
	assert.Equal(t, LicenseAdobeMIT, r.License)
	assert.Equal(t, CategoryUnknown, r.Categories.Time)
	assert.True(t, fsutil.MustFileExists(r.Files.DNG))

	// Re-building downloads nothing: the extracted archive and expert files
	// are all in place.
	requests := httpmock.GetTotalCallCount()
	_, err = builder.Build("")
	require.NoError(t, err)
	assert.Equal(t, requests, httpmock.GetTotalCallCount())
}
