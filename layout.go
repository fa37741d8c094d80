// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fivek

import (
	"fmt"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// LayoutMode selects the physical on-disk arrangement of the raw files.
// It is fixed at Builder construction.
type LayoutMode string

const (
	// PerCameraModel stores each DNG under raw/<Make>_<Model>/, with spaces in
	// the camera name replaced by underscores. Records come from per-split
	// JSON index files.
	PerCameraModel LayoutMode = "per_camera_model"

	// Archive keeps the DNGs where the extracted official tar archive places
	// them: raw/fivek_dataset/raw_photos/<bucket>/photos/. Records are derived
	// from the archive's flat list and category files.
	Archive LayoutMode = "archive"
)

const (
	rawExt    = ".dng"
	expertExt = ".tif"
)

// Layout derives on-disk locations for one physical arrangement of the
// dataset, and knows how to load its metadata records. Path derivation is
// pure: directories are only created by the Builder, lazily before writes.
type Layout interface {
	// RawPath returns the local path of the DNG file for basename. The record
	// provides the metadata context some layouts need (camera make/model).
	RawPath(basename string, record *Record) (string, error)

	// ExpertPath returns the local path of the TIFF rendition by the given
	// expert for basename.
	ExpertPath(basename, expert string) string

	// Load reads the metadata records for the given split. An empty split
	// loads every split. The returned records carry no resolved Files.
	Load(split string) (Metadata, error)
}

// newLayout returns the Layout implementing mode, rooted at datasetDir.
func newLayout(mode LayoutMode, datasetDir string) (Layout, error) {
	switch mode {
	case PerCameraModel:
		return &perCameraModelLayout{datasetDir: datasetDir}, nil
	case Archive:
		return &archiveLayout{datasetDir: datasetDir}, nil
	}
	return nil, errors.Wrapf(ErrConfiguration, "invalid layout mode %q: modes are %q and %q",
		mode, PerCameraModel, Archive)
}

type perCameraModelLayout struct {
	datasetDir string
}

func (l *perCameraModelLayout) RawPath(basename string, record *Record) (string, error) {
	if record == nil || record.Camera == nil {
		return "", errors.Wrapf(ErrMissingAttribute,
			"record %q has no camera make/model, required by the %q layout", basename, PerCameraModel)
	}
	cameraModel := strings.ReplaceAll(record.Camera.Make+"_"+record.Camera.Model, " ", "_")
	return path.Join(l.datasetDir, "raw", cameraModel, basename+rawExt), nil
}

func (l *perCameraModelLayout) ExpertPath(basename, expert string) string {
	return expertPath(l.datasetDir, basename, expert)
}

type archiveLayout struct {
	datasetDir string
}

func (l *archiveLayout) RawPath(basename string, _ *Record) (string, error) {
	id, err := ParseID(basename)
	if err != nil {
		return "", err
	}
	return path.Join(l.datasetDir, "raw", "fivek_dataset", "raw_photos",
		archiveBucket(id), "photos", basename+rawExt), nil
}

func (l *archiveLayout) ExpertPath(basename, expert string) string {
	return expertPath(l.datasetDir, basename, expert)
}

// expertPath is shared by both layouts: processed/tiff16_<expert>/<basename>.tif.
func expertPath(datasetDir, basename, expert string) string {
	return path.Join(datasetDir, "processed", "tiff16_"+expert, basename+expertExt)
}

// archiveBucket returns the raw_photos directory name holding the given id.
// The archive partitions [1, MaxID] into windows of 700 starting at 1
// ("HQa{s}to{s+699}"), except that the window starting at 1401 is named
// "HQa1400to2100" upstream. That irregularity is replicated here on purpose:
// the directory exists under that exact name in the published archive.
// Ids past the last window map to the terminal bucket "HQa4201to5000".
func archiveBucket(id int) string {
	for s := 1; s <= 3501; s += 700 {
		if id < s || id >= s+700 {
			continue
		}
		if s == 1401 {
			return "HQa1400to2100"
		}
		return fmt.Sprintf("HQa%dto%d", s, s+699)
	}
	return "HQa4201to5000"
}
