// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fivek

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/gomlx/fivek/pkg/support/fsutil"
	"github.com/gomlx/fivek/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Fixed remote locations of the dataset files.
var (
	// IndexBaseURL serves the per-split JSON index files.
	IndexBaseURL = "https://huggingface.co/datasets/yuukicammy/MIT-Adobe-FiveK/raw/main/"

	// ImageBaseURL serves the expert TIFF files, under img/tiff16_<e>/.
	ImageBaseURL = "https://data.csail.mit.edu/graphics/fivek/"

	// ArchiveURL is the full dataset tar archive (~50GB).
	ArchiveURL = "https://data.csail.mit.edu/graphics/fivek/fivek_dataset.tar"
)

// splitIndexFiles maps a split name to its JSON index file at the dataset root.
var splitIndexFiles = map[string]string{
	SplitTrain: "training.json",
	SplitVal:   "validation.json",
	SplitTest:  "testing.json",
	SplitDebug: "debugging.json",
}

// Files shipped inside the extracted archive, under raw/fivek_dataset/.
// The two list files partition the identifiers by license class; should an
// identifier appear in both, the later entry wins.
var archiveListFiles = []struct {
	name    string
	license string
}{
	{"filesAdobeMIT.txt", LicenseAdobeMIT},
	{"filesAdobe.txt", LicenseAdobe},
}

const archiveCategoryFile = "categories.txt"

func splitIndexURL(split string) string {
	return IndexBaseURL + splitIndexFiles[split]
}

func dngURL(basename string) string {
	// The upstream index serves DNGs over plain http.
	return "http://data.csail.mit.edu/graphics/fivek/img/dng/" + basename + rawExt
}

func tiff16URL(basename, expert string) string {
	return fmt.Sprintf("%simg/tiff16_%s/%s%s", ImageBaseURL, expert, basename, expertExt)
}

// checkSplit validates a split name. The empty split means "all splits".
func checkSplit(split string) error {
	if split == "" {
		return nil
	}
	if _, found := splitIndexFiles[split]; !found {
		return errors.Wrapf(ErrNotFound, "unknown split %q: splits are %q", split, Splits)
	}
	return nil
}

// Load for the per-camera-model layout parses the JSON index of the split, or
// the union of all four splits when split is empty. Index files not yet
// downloaded are skipped, so that a partial local copy still loads.
func (l *perCameraModelLayout) Load(split string) (Metadata, error) {
	if err := checkSplit(split); err != nil {
		return nil, err
	}
	splitNames := Splits
	if split != "" {
		splitNames = []string{split}
	}
	meta := make(Metadata)
	for _, s := range splitNames {
		indexPath := path.Join(l.datasetDir, splitIndexFiles[s])
		if !fsutil.MustFileExists(indexPath) {
			klog.V(1).Infof("index file %s not present, skipping split %q", indexPath, s)
			continue
		}
		if err := loadJSONIndex(indexPath, meta); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

// loadJSONIndex merges the records of one index file into meta.
// Splits are disjoint upstream; on overlap the last load wins.
func loadJSONIndex(indexPath string, meta Metadata) error {
	encoded, err := os.ReadFile(indexPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read index file %q", indexPath)
	}
	var records map[string]*Record
	if err = json.Unmarshal(encoded, &records); err != nil {
		return errors.Wrapf(err, "failed to parse index file %q", indexPath)
	}
	for basename, record := range records {
		if record.ID == 0 {
			record.ID, err = ParseID(basename)
			if err != nil {
				return errors.WithMessagef(err, "in index file %q", indexPath)
			}
		}
		if record.ID < 1 || record.ID > MaxID {
			return errors.Wrapf(ErrMissingAttribute, "index file %q: record %q id %d is outside [1, %d]",
				indexPath, basename, record.ID, MaxID)
		}
		meta[basename] = record
	}
	return nil
}

// Load for the archive layout derives the identifier universe from the two
// flat list files, the license class from which list file an identifier
// appears in, and the category labels from the categories file.
//
// The archive carries no split partitioning, so split only gets validated:
// every split name yields the full universe.
func (l *archiveLayout) Load(split string) (Metadata, error) {
	if err := checkSplit(split); err != nil {
		return nil, err
	}
	archiveDir := path.Join(l.datasetDir, "raw", "fivek_dataset")
	basenames, licenses, err := loadListFiles(archiveDir)
	if err != nil {
		return nil, err
	}
	categories, err := loadCategoryFile(path.Join(archiveDir, archiveCategoryFile))
	if err != nil {
		return nil, err
	}

	meta := make(Metadata, len(basenames))
	for _, basename := range basenames {
		id, err := ParseID(basename)
		if err != nil {
			return nil, err
		}
		itemCategories, found := categories[basename]
		if !found {
			return nil, errors.Wrapf(ErrMissingAttribute,
				"identifier %q is listed but has no entry in %s", basename, archiveCategoryFile)
		}
		record := &Record{
			ID:         id,
			License:    licenses[basename],
			Categories: itemCategories,
			URLs: URLs{
				DNG:    dngURL(basename),
				TIFF16: make(map[string]string, len(Experts)),
			},
		}
		for _, e := range Experts {
			record.URLs.TIFF16[e] = tiff16URL(basename, e)
		}
		meta[basename] = record
	}
	return meta, nil
}

// loadListFiles reads the identifier list files present under archiveDir and
// returns the sorted, deduplicated identifier universe plus the license class
// of each identifier.
func loadListFiles(archiveDir string) (basenames []string, licenses map[string]string, err error) {
	licenses = make(map[string]string)
	seen := sets.Make[string]()
	for _, listFile := range archiveListFiles {
		listPath := path.Join(archiveDir, listFile.name)
		if !fsutil.MustFileExists(listPath) {
			klog.V(1).Infof("list file %s not present, skipping", listPath)
			continue
		}
		lines, err := readLines(listPath)
		if err != nil {
			return nil, nil, err
		}
		for _, basename := range lines {
			licenses[basename] = listFile.license
			if seen.Has(basename) {
				continue
			}
			seen.Insert(basename)
			basenames = append(basenames, basename)
		}
	}
	sort.Strings(basenames)
	return basenames, licenses, nil
}

// loadCategoryFile parses the comma-separated category annotations: each line
// holds an identifier plus the 4 category fields, with the literal "None"
// normalized to CategoryUnknown. A missing categories file yields an empty map.
func loadCategoryFile(categoryPath string) (map[string]Categories, error) {
	categories := make(map[string]Categories)
	if !fsutil.MustFileExists(categoryPath) {
		klog.V(1).Infof("category file %s not present, skipping", categoryPath)
		return categories, nil
	}
	lines, err := readLines(categoryPath)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		fields := strings.Split(line, ",")
		if len(fields) != 5 {
			return nil, errors.Wrapf(ErrMissingAttribute,
				"malformed line %q in %q: want identifier plus 4 category fields", line, categoryPath)
		}
		for i, field := range fields[1:] {
			if field == "None" {
				fields[1+i] = CategoryUnknown
			}
		}
		categories[fields[0]] = Categories{
			Location: fields[1],
			Time:     fields[2],
			Light:    fields[3],
			Subject:  fields[4],
		}
	}
	return categories, nil
}

// readLines returns the non-empty lines of an ASCII text file.
func readLines(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", filePath)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %q", filePath)
	}
	return lines, nil
}
