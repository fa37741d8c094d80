// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fivek

// License tags of the dataset items. Which of the two archive list files an
// identifier appears in determines its license class.
const (
	LicenseAdobe    = "Adobe"
	LicenseAdobeMIT = "AdobeMIT"
)

// The sentinel category value for fields the annotators left unset.
const CategoryUnknown = "unknown"

// Camera holds the make and model of the camera that took an image.
// It is only populated by the per-camera-model layout, where it determines
// the directory a DNG file lives in.
type Camera struct {
	Make  string `json:"make"`
	Model string `json:"model"`
}

// Categories are the four semantic labels annotated per image. Each is either
// a known category value or CategoryUnknown.
type Categories struct {
	Location string `json:"location"`
	Time     string `json:"time"`
	Light    string `json:"light"`
	Subject  string `json:"subject"`
}

// URLs are the remote locations of an item's files: the DNG raw file and one
// TIFF per expert ("a" to "e").
type URLs struct {
	DNG    string            `json:"dng"`
	TIFF16 map[string]string `json:"tiff16"`
}

// Files are the resolved local paths of an item's files. The TIFF16 map only
// holds entries for the experts the Builder was asked for.
//
// Files is always derived, never persisted: the Builder recomputes it from
// basename + layout + requested experts on every Metadata or Build call, so
// paths stay consistent if the physical layout changes.
type Files struct {
	DNG    string            `json:"dng"`
	TIFF16 map[string]string `json:"tiff16"`
}

// Record is the full description of one dataset item, keyed in Metadata by
// its basename. Records loaded from index files are never mutated; resolved
// views are fresh copies.
type Record struct {
	// ID is the numeric id embedded in the basename, in [1, MaxID]. It selects
	// the numeric-range bucket in the archive layout.
	ID int `json:"id"`

	License    string     `json:"license"`
	Categories Categories `json:"categories"`

	// Camera is nil in the archive layout.
	Camera *Camera `json:"camera,omitempty"`

	URLs  URLs  `json:"urls"`
	Files Files `json:"files"`
}

// Metadata maps an image basename to its record. It is the collaborator-facing
// view returned by Builder.Build and Builder.Metadata.
type Metadata map[string]*Record

// Exists reports whether a record for basename is present.
func (m Metadata) Exists(basename string) bool {
	_, found := m[basename]
	return found
}
