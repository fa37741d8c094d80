// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fivek

import (
	"path"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/fivek/downloader"
	"github.com/gomlx/fivek/pkg/support/fsutil"
	"github.com/gomlx/fivek/pkg/support/xsync"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"k8s.io/klog/v2"
)

// ProgressFn is called as a build progresses, with the number of item files
// already present or downloaded, out of the total the build requires.
// It is an observability hook only; builds work the same without one.
type ProgressFn func(done, total int)

// Builder drives the end-to-end acquisition workflow: fetch split indices,
// fetch raw files, fetch expert files, verify completeness, and produce the
// resolved metadata view (local paths substituted for URLs).
//
// The builder holds no mutable metadata: every Build and Metadata call loads a
// fresh snapshot and re-derives the Files of each record, so results stay
// consistent if files change on disk between calls.
//
// A Builder is safe for sequential reuse across splits. The layout mode and
// requested experts are fixed at construction.
type Builder struct {
	datasetDir  string
	mode        LayoutMode
	layout      Layout
	experts     []string
	redownload  bool
	maxParallel int
	fetcher     *downloader.Fetcher
	progress    ProgressFn
}

// New creates a Builder rooted at datasetDir. The mode selects the physical
// layout (empty defaults to PerCameraModel) and experts lists the retouched
// renditions to acquire, a case-insensitive subset of Experts (nil for none).
func New(datasetDir string, mode LayoutMode, experts []string) (*Builder, error) {
	if datasetDir == "" {
		return nil, errors.Wrap(ErrConfiguration, "datasetDir must not be empty")
	}
	datasetDir, err := fsutil.ReplaceTildeInDir(datasetDir)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = PerCameraModel
	}
	layout, err := newLayout(mode, datasetDir)
	if err != nil {
		return nil, err
	}
	parsedExperts, err := ParseExperts(experts)
	if err != nil {
		return nil, err
	}
	return &Builder{
		datasetDir:  datasetDir,
		mode:        mode,
		layout:      layout,
		experts:     parsedExperts,
		maxParallel: 1,
		fetcher:     downloader.NewFetcher(),
	}, nil
}

// DatasetDir returns the root directory of the dataset.
func (b *Builder) DatasetDir() string { return b.datasetDir }

// Experts returns the normalized requested expert set.
func (b *Builder) Experts() []string { return b.experts }

// WithRedownload forces files to be fetched again even if already on disk.
func (b *Builder) WithRedownload(redownload bool) *Builder {
	b.redownload = redownload
	return b
}

// WithMaxParallel sets how many item files to download at the same time.
// Default is 1 (sequential); n <= 0 removes the limit.
func (b *Builder) WithMaxParallel(n int) *Builder {
	b.maxParallel = n
	return b
}

// WithProgress registers a callback reporting download progress.
func (b *Builder) WithProgress(fn ProgressFn) *Builder {
	b.progress = fn
	return b
}

// WithFetcher replaces the transport, e.g. to change the retry policy or to
// inject a mock HTTP client in tests.
func (b *Builder) WithFetcher(fetcher *downloader.Fetcher) *Builder {
	b.fetcher = fetcher
	return b
}

// Build acquires all files of the given split ("" for every split) and
// returns the resolved metadata.
//
// It first makes the split index data present locally -- the per-split JSON
// indices in PerCameraModel mode, the downloaded and extracted tar archive in
// Archive mode -- then downloads every missing raw and requested expert file
// across the worker pool. Files already on disk are skipped, so re-invoking
// Build is cheap and performs zero redundant requests.
//
// Any single download failure aborts the build with an error that is both
// ErrBuild and the underlying downloader.ErrDownload kind, naming the failing
// URL; there is no partial-success return. After all downloads, completeness
// is re-checked and a bare ErrBuild reported should any file still be missing.
func (b *Builder) Build(split string) (Metadata, error) {
	if err := b.ensureIndex(split); err != nil {
		return nil, err
	}
	meta, err := b.layout.Load(split)
	if err != nil {
		return nil, err
	}
	resolved, err := b.resolve(meta)
	if err != nil {
		return nil, err
	}
	if err = b.downloadAll(resolved); err != nil {
		return nil, err
	}
	if !b.CheckExists(resolved) {
		return nil, errors.Wrapf(ErrBuild,
			"dataset under %q is incomplete after download, re-run with redownload to fetch everything again",
			b.datasetDir)
	}
	return resolved, nil
}

// Metadata returns the resolved metadata of the given split ("" for every
// split) without any network I/O: it only loads whatever index data is on
// disk and recomputes the file paths. Use it when the data is known to be
// already built; CheckExists verifies that.
func (b *Builder) Metadata(split string) (Metadata, error) {
	meta, err := b.layout.Load(split)
	if err != nil {
		return nil, err
	}
	return b.resolve(meta)
}

// CheckExists reports completeness: a non-empty metadata set whose every raw
// file and every requested expert file exists on disk. An empty set is never
// complete, so "nothing to check" cannot pass for success.
func (b *Builder) CheckExists(meta Metadata) bool {
	if len(meta) == 0 {
		return false
	}
	for basename, record := range meta {
		rawPath, err := b.layout.RawPath(basename, record)
		if err != nil || !fsutil.MustFileExists(rawPath) {
			return false
		}
		for _, e := range b.experts {
			if !fsutil.MustFileExists(b.layout.ExpertPath(basename, e)) {
				return false
			}
		}
	}
	return true
}

// ensureIndex makes the split index data present locally: the JSON index
// files in PerCameraModel mode, the downloaded and extracted archive in
// Archive mode.
func (b *Builder) ensureIndex(split string) error {
	if err := checkSplit(split); err != nil {
		return err
	}
	if b.mode == Archive {
		return b.ensureArchive()
	}
	splitNames := Splits
	if split != "" {
		splitNames = []string{split}
	}
	for _, s := range splitNames {
		indexPath := path.Join(b.datasetDir, splitIndexFiles[s])
		if !b.redownload && fsutil.MustFileExists(indexPath) {
			continue
		}
		url := splitIndexURL(s)
		klog.V(1).Infof("downloading index %s", url)
		if _, err := b.fetcher.Fetch(url, indexPath); err != nil {
			return buildFailed(err, url)
		}
	}
	return nil
}

// ensureArchive downloads and extracts the dataset tar archive, unless its
// contents are already in place.
func (b *Builder) ensureArchive() error {
	rawDir := path.Join(b.datasetDir, "raw")
	extractedDir := path.Join(rawDir, "fivek_dataset")
	if !b.redownload && fsutil.MustFileExists(extractedDir) {
		return nil
	}
	archivePath := path.Join(rawDir, "fivek_dataset.tar")
	if b.redownload || !fsutil.MustFileExists(archivePath) {
		klog.V(1).Infof("downloading archive %s", ArchiveURL)
		// A single ~50GB transfer: show a per-byte bar instead of the
		// files-done counter the item downloads report.
		b.fetcher.WithProgressBar(true)
		_, err := b.fetcher.Fetch(ArchiveURL, archivePath)
		b.fetcher.WithProgressBar(false)
		if err != nil {
			return buildFailed(err, ArchiveURL)
		}
	}
	klog.V(1).Infof("extracting %s", archivePath)
	return downloader.Extract(archivePath, rawDir)
}

// fetchTask is one pending file transfer of a build.
type fetchTask struct {
	url, destPath string
}

// pendingTasks lists the item files the build still has to fetch: the raw DNG
// of every record (PerCameraModel mode only; in Archive mode the raws come
// from the extracted archive) and the TIFF of every requested expert. Files
// already on disk are skipped unless redownload is set.
//
// The second result is the total number of item files the build covers,
// including the already-present ones, for progress reporting.
func (b *Builder) pendingTasks(meta Metadata) (tasks []fetchTask, total int, err error) {
	basenames := maps.Keys(meta)
	sort.Strings(basenames)
	for _, basename := range basenames {
		record := meta[basename]
		if b.mode == PerCameraModel {
			total++
			if b.redownload || !fsutil.MustFileExists(record.Files.DNG) {
				if record.URLs.DNG == "" {
					return nil, 0, errors.Wrapf(ErrMissingAttribute, "record %q has no DNG url", basename)
				}
				tasks = append(tasks, fetchTask{url: record.URLs.DNG, destPath: record.Files.DNG})
			}
		}
		for _, e := range b.experts {
			total++
			destPath := record.Files.TIFF16[e]
			if !b.redownload && fsutil.MustFileExists(destPath) {
				continue
			}
			url, found := record.URLs.TIFF16[e]
			if !found || url == "" {
				return nil, 0, errors.Wrapf(ErrMissingAttribute, "record %q has no url for expert %q", basename, e)
			}
			tasks = append(tasks, fetchTask{url: url, destPath: destPath})
		}
	}
	return tasks, total, nil
}

// downloadAll fetches every pending item file of the resolved metadata across
// a pool of at most maxParallel workers. Workers share nothing mutable beyond
// the filesystem and each task has a distinct destination path, so no further
// locking is needed. The first failure is kept and aborts the build; workers
// that have not started their transfer yet give up, the ones in flight finish.
func (b *Builder) downloadAll(resolved Metadata) error {
	tasks, total, err := b.pendingTasks(resolved)
	if err != nil {
		return err
	}
	done := total - len(tasks)
	b.reportProgress(done, total)
	if len(tasks) == 0 {
		return nil
	}
	klog.V(1).Infof("downloading %d of %d files to %s", len(tasks), total, b.datasetDir)

	sem := xsync.NewSemaphore(b.maxParallel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	var totalBytes int64
	for _, task := range tasks {
		wg.Add(1)
		go func(task fetchTask) {
			defer wg.Done()
			sem.Acquire()
			defer sem.Release()

			mu.Lock()
			aborted := firstErr != nil
			mu.Unlock()
			if aborted {
				return
			}
			size, err := b.fetcher.Fetch(task.url, task.destPath)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = buildFailed(err, task.url)
				}
				return
			}
			totalBytes += size
			done++
			b.reportProgress(done, total)
		}(task)
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	klog.V(1).Infof("downloaded %d files (%s)", len(tasks), humanize.Bytes(uint64(totalBytes)))
	return nil
}

func (b *Builder) reportProgress(done, total int) {
	if b.progress != nil {
		b.progress(done, total)
	}
}

// resolve returns a fresh metadata view with the Files of every record
// recomputed from basename + layout + requested experts. The stored records
// are never mutated.
func (b *Builder) resolve(meta Metadata) (Metadata, error) {
	resolved := make(Metadata, len(meta))
	for basename, record := range meta {
		r := *record
		rawPath, err := b.layout.RawPath(basename, record)
		if err != nil {
			return nil, err
		}
		r.Files = Files{
			DNG:    rawPath,
			TIFF16: make(map[string]string, len(b.experts)),
		}
		for _, e := range b.experts {
			r.Files.TIFF16[e] = b.layout.ExpertPath(basename, e)
		}
		resolved[basename] = &r
	}
	return resolved, nil
}
