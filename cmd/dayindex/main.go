// dayindex lists the day folders and images skylapse would see
package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"time"

	_ "time/tzdata"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"

	"github.com/tstromberg/skylapse/pkg/skylapse"
)

var (
	inDir        = flag.String("in", "", "directory holding one folder per day")
	folderLayout = flag.String("folder-layout", "2006-01-02", "Go time layout of day folder names")
	imageLayout  = flag.String("image-layout", "2006-01-02--15-04-05.jpg", "Go time layout of image names")
	tz           = flag.String("tz", "Local", "time zone of folder and image names")
	exif         = flag.Bool("exif", false, "read capture times from EXIF instead of names")
	from         = flag.String("from", "", "first day to list (2006-01-02)")
	to           = flag.String("to", "", "last day to list (2006-01-02)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *inDir == "" {
		klog.Exitf("--in is a required flag")
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		klog.Exitf("bad time zone: %v", err)
	}

	start := time.Date(1, 1, 1, 0, 0, 0, 0, loc)
	end := time.Date(9999, 12, 31, 23, 59, 59, 0, loc)
	if *from != "" {
		if start, err = time.ParseInLocation("2006-01-02", *from, loc); err != nil {
			klog.Exitf("--from: %v", err)
		}
	}
	if *to != "" {
		if end, err = time.ParseInLocation("2006-01-02", *to, loc); err != nil {
			klog.Exitf("--to: %v", err)
		}
		end = end.Add(24*time.Hour - time.Second)
	}

	days, err := skylapse.FindDays(*inDir, start, end, *folderLayout, loc)
	if err != nil {
		klog.Exitf("find days: %v", err)
	}

	var et *exiftool.Exiftool
	if *exif {
		et, err = exiftool.NewExiftool()
		if err != nil {
			klog.Exitf("exiftool: %v", err)
		}
		defer et.Close()
	}

	total := 0
	for _, d := range days {
		dir := filepath.Join(*inDir, d.Name)
		var s skylapse.Series
		if et != nil {
			s, err = skylapse.ListImagesEXIF(dir, et, loc)
		} else {
			s, err = skylapse.ListImages(dir, *imageLayout, loc)
		}
		if err != nil {
			klog.Errorf("%s: %v", d.Name, err)
			continue
		}

		total += len(s)
		if len(s) == 0 {
			fmt.Printf("%s  %6d\n", d.Name, 0)
			continue
		}
		fmt.Printf("%s  %6d  %s - %s\n", d.Name, len(s), s.First().Format(time.TimeOnly), s.Last().Format(time.TimeOnly))
	}

	klog.Infof("%d images in %d days", total, len(days))
}
