// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// fivek downloads the MIT-Adobe FiveK dataset and prints a summary of the
// acquired split.
//
// Example, fetching the 9-item debug split with expert C renditions:
//
//	fivek --data=~/work/fivek --split=debug --experts=c
package main

import (
	"flag"
	"fmt"
	"path"
	"strings"

	"github.com/gomlx/fivek"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagDataDir = flag.String("data", "~/work/fivek", "Directory to store the dataset under (a "+
		fivek.DefaultDirName+" subdirectory is created).")
	flagSplit = flag.String("split", "", "Split to build: train, val, test or debug. Empty builds all splits.")
	flagExperts = flag.String("experts", "", "Comma-separated experts to download, out of a,b,c,d,e. "+
		"Empty downloads no retouched renditions.")
	flagLayout = flag.String("layout", string(fivek.PerCameraModel),
		fmt.Sprintf("Physical layout: %q or %q.", fivek.PerCameraModel, fivek.Archive))
	flagParallel   = flag.Int("parallel", 1, "Number of parallel downloads. Values <= 0 remove the limit.")
	flagRedownload = flag.Bool("redownload", false, "Force files to be downloaded again even if present.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	var experts []string
	if *flagExperts != "" {
		experts = strings.Split(*flagExperts, ",")
	}
	datasetDir := path.Join(*flagDataDir, fivek.DefaultDirName)
	builder := must.M1(fivek.New(datasetDir, fivek.LayoutMode(*flagLayout), experts)).
		WithMaxParallel(*flagParallel).
		WithRedownload(*flagRedownload)

	var bar *progressbar.ProgressBar
	builder.WithProgress(func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Downloading"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetTheme(progressbar.ThemeUnicode),
			)
		}
		_ = bar.Set(done)
	})

	meta, err := builder.Build(*flagSplit)
	if err != nil {
		klog.Fatalf("Failed to build dataset: %+v", err)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	split := *flagSplit
	if split == "" {
		split = "all"
	}
	fmt.Printf("%s: %d images under %s\n", split, len(meta), builder.DatasetDir())
	ds := fivek.FromMetadata(meta)
	if ds.Len() > 0 {
		item := ds.At(0)
		fmt.Printf("first item: %s -> %s\n", item.Basename, item.Files.DNG)
	}
}
