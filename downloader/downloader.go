// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package downloader implements resilient HTTP file downloads and tar archive
// extraction for dataset acquisition.
//
// Downloads stream straight to disk (raw camera files reach tens of megabytes
// and thousands are fetched per session) and retry with exponential backoff on
// transient server errors. Success only checks that the destination file
// exists afterwards: content length and checksum are not verified, so a
// truncated transfer from a dropped connection can pass. That matches the
// upstream acquisition tooling and is deliberate; callers wanting integrity
// guarantees must check the files themselves.
package downloader

import (
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/gomlx/fivek/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Error kinds returned by this package, matched with errors.Is.
var (
	// ErrDownload indicates a failed transfer: a client error, or a transient
	// server/network failure that exhausted its retry budget.
	ErrDownload = errors.New("download failed")

	// ErrExtraction indicates a corrupt or unreadable archive. Never retried.
	ErrExtraction = errors.New("extraction failed")
)

// Per-request timeout budgets. There is no overall deadline: a slow but live
// transfer of a multi-gigabyte archive is expected.
const (
	connectTimeout = 3 * time.Second
	readTimeout    = 7500 * time.Millisecond
)

// RetryPolicy decides which failed requests are retried and how. It is a pure
// value wrapping the stateless transfer call: no retry state lives anywhere else.
type RetryPolicy struct {
	// MaxRetries is how many times a failed request is reissued. The total
	// number of attempts is MaxRetries+1.
	MaxRetries int

	// Backoff is the delay before the first retry; it doubles on each
	// subsequent one.
	Backoff time.Duration

	// Retryable reports whether a response status code is a transient server
	// failure worth retrying. Transport-level network errors are always
	// considered transient.
	Retryable func(statusCode int) bool
}

// DefaultRetryPolicy retries 5 times with exponential backoff starting at 1s,
// on the transient server statuses 500, 502, 503 and 504.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		Backoff:    time.Second,
		Retryable: func(statusCode int) bool {
			switch statusCode {
			case http.StatusInternalServerError, http.StatusBadGateway,
				http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				return true
			}
			return false
		},
	}
}

// delay before the given retry (1-based).
func (p RetryPolicy) delay(retry int) time.Duration {
	return p.Backoff << (retry - 1)
}

// Fetcher downloads files over HTTP with a RetryPolicy. The zero value is not
// usable; create one with NewFetcher.
type Fetcher struct {
	client       *http.Client
	policy       RetryPolicy
	showProgress bool
}

// NewFetcher returns a Fetcher with DefaultRetryPolicy and separate
// connect (3s) and response (7.5s) timeout budgets.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
				ResponseHeaderTimeout: readTimeout,
			},
		},
		policy: DefaultRetryPolicy(),
	}
}

// WithPolicy replaces the retry policy.
func (f *Fetcher) WithPolicy(policy RetryPolicy) *Fetcher {
	f.policy = policy
	return f
}

// WithClient replaces the HTTP client, including its timeouts. Used by tests
// to inject a mock transport.
func (f *Fetcher) WithClient(client *http.Client) *Fetcher {
	f.client = client
	return f
}

// WithProgressBar enables a per-file progress bar on transfers whose size is
// known up-front. Meant for large single files like the dataset archive.
func (f *Fetcher) WithProgressBar(enabled bool) *Fetcher {
	f.showProgress = enabled
	return f
}

// Fetch downloads url to destPath, creating the destination directory if
// needed. The response body streams to disk. Transient failures are retried
// per the policy; anything else fails immediately with an ErrDownload kind.
//
// It returns the number of bytes written. Fetch succeeds only if destPath
// exists on disk after the write completes.
func (f *Fetcher) Fetch(url, destPath string) (size int64, err error) {
	destPath = fsutil.MustReplaceTildeInDir(destPath)
	if err = os.MkdirAll(path.Dir(destPath), 0777); err != nil && !os.IsExist(err) {
		return 0, errors.Wrapf(err, "failed to create the directory for %q", destPath)
	}
	for attempt := 0; ; attempt++ {
		var retryable bool
		size, retryable, err = f.fetchOnce(url, destPath)
		if err == nil {
			if !fsutil.MustFileExists(destPath) {
				return 0, errors.Wrapf(ErrDownload, "transfer of %q completed but %q is not on disk", url, destPath)
			}
			return size, nil
		}
		if !retryable || attempt >= f.policy.MaxRetries {
			return 0, err
		}
		delay := f.policy.delay(attempt + 1)
		klog.V(1).Infof("retrying %s in %s (retry %d of %d): %v", url, delay, attempt+1, f.policy.MaxRetries, err)
		time.Sleep(delay)
	}
}

func (f *Fetcher) fetchOnce(url, destPath string) (size int64, retryable bool, err error) {
	resp, err := f.client.Get(url)
	if err != nil {
		return 0, true, errors.Wrapf(ErrDownload, "failed downloading %q: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, f.policy.Retryable(resp.StatusCode),
			errors.Wrapf(ErrDownload, "status %q downloading %q", resp.Status, url)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed creating file %q", destPath)
	}
	if f.showProgress && resp.ContentLength > 0 {
		size, err = CopyWithProgressBar(file, resp.Body, resp.ContentLength)
	} else {
		size, err = io.Copy(file, resp.Body)
	}
	if err != nil {
		_ = file.Close()
		return 0, true, errors.Wrapf(ErrDownload, "failed writing %q to %q: %v", url, destPath, err)
	}
	if err = file.Close(); err != nil {
		return 0, false, errors.Wrapf(err, "failed closing %q", destPath)
	}
	return size, false, nil
}

// Extract unpacks the tar archive at archivePath into destDir, choosing the
// decompression flag from the suffix: .gz/.tgz for gzip, .bz2 for bzip2.
// Any failure surfaces as an ErrExtraction kind.
func Extract(archivePath, destDir string) error {
	archivePath = fsutil.MustReplaceTildeInDir(archivePath)
	destDir = fsutil.MustReplaceTildeInDir(destDir)
	if err := os.MkdirAll(destDir, 0777); err != nil && !os.IsExist(err) {
		return errors.Wrapf(err, "failed to create the extraction directory %q", destDir)
	}
	compressionFlag := ""
	if strings.HasSuffix(archivePath, ".gz") || strings.HasSuffix(archivePath, ".tgz") {
		compressionFlag = "z"
	} else if strings.HasSuffix(archivePath, ".bz2") {
		compressionFlag = "j"
	}
	cmd := exec.Command("tar", "x"+compressionFlag+"f", archivePath)
	cmd.Dir = destDir
	if output, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(ErrExtraction, "failed to run %q: %v: %s", cmd, err, output)
	}
	return nil
}
