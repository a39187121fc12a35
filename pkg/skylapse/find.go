package skylapse

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

var exifDate = "2006:01:02 15:04:05"

// extensions considered when capture times come from EXIF.
var exifExtensions = []string{".jpg", ".jpeg", ".png", ".tif", ".tiff"}

// parseOrSkip parses name with layout. Names that do not fit are expected
// (thumbnails, lock files, unrelated folders) and are skipped without comment.
func parseOrSkip(layout string, name string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(layout, name, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FindDays returns the day folders under root whose names parse with layout
// and whose date falls within [midnight(start), end], oldest first.
func FindDays(root string, start, end time.Time, layout string, loc *time.Location) ([]Day, error) {
	des, err := godirwalk.ReadDirents(root, nil)
	if err != nil {
		return nil, &FilesystemError{Op: "read days", Path: root, Err: err}
	}

	from := midnight(start.In(loc))
	days := []Day{}
	for _, de := range des {
		isDir, err := de.IsDirOrSymlinkToDir()
		if err != nil || !isDir {
			continue
		}

		d, ok := parseOrSkip(layout, de.Name(), loc)
		if !ok {
			continue
		}

		if d.Before(from) || d.After(end) {
			continue
		}
		days = append(days, Day{Date: d, Name: de.Name()})
	}

	sort.Slice(days, func(i, j int) bool {
		if days[i].Date.Equal(days[j].Date) {
			return days[i].Name < days[j].Name
		}
		return days[i].Date.Before(days[j].Date)
	})

	klog.V(1).Infof("found %d day folders in %s between %s and %s", len(days), root, from, end)
	return days, nil
}

// fileNames returns the sorted names of regular entries in dir.
func fileNames(dir string) ([]string, error) {
	des, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, &FilesystemError{Op: "read images", Path: dir, Err: err}
	}

	names := []string{}
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)
	return names, nil
}

// collapse sorts images by capture time. When several share a timestamp the
// first one passed in wins.
func collapse(is []Image) Series {
	sort.SliceStable(is, func(i, j int) bool {
		return is[i].Taken.Before(is[j].Taken)
	})

	out := Series{}
	for _, i := range is {
		if len(out) > 0 && out[len(out)-1].Taken.Equal(i.Taken) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// ListImages returns the images in dir whose names parse with layout,
// ordered by capture time.
func ListImages(dir string, layout string, loc *time.Location) (Series, error) {
	names, err := fileNames(dir)
	if err != nil {
		return nil, err
	}

	found := make([]Image, 0, len(names))
	for _, n := range names {
		t, ok := parseOrSkip(layout, n, loc)
		if !ok {
			continue
		}
		found = append(found, Image{Taken: t, Path: filepath.Join(dir, n)})
	}

	s := collapse(found)
	klog.V(1).Infof("%s: %d of %d entries are images", dir, len(s), len(names))
	return s, nil
}

// ListImagesEXIF is like ListImages, but reads capture times from the
// DateTimeOriginal EXIF tag. Files without a usable tag are skipped.
func ListImagesEXIF(dir string, et *exiftool.Exiftool, loc *time.Location) (Series, error) {
	names, err := fileNames(dir)
	if err != nil {
		return nil, err
	}

	paths := []string{}
	for _, n := range names {
		ext := strings.ToLower(filepath.Ext(n))
		for _, e := range exifExtensions {
			if ext == e {
				paths = append(paths, filepath.Join(dir, n))
				break
			}
		}
	}

	if len(paths) == 0 {
		return Series{}, nil
	}

	found := make([]Image, 0, len(paths))
	for _, fi := range et.ExtractMetadata(paths...) {
		if fi.Err != nil {
			continue
		}

		ds, err := fi.GetString("DateTimeOriginal")
		if err != nil {
			continue
		}

		t, ok := parseOrSkip(exifDate, ds, loc)
		if !ok {
			continue
		}
		found = append(found, Image{Taken: t, Path: fi.File})
	}

	s := collapse(found)
	klog.V(1).Infof("%s: %d of %d files carry a capture time", dir, len(s), len(paths))
	return s, nil
}

func describeDays(days []Day) string {
	if len(days) == 0 {
		return "no days"
	}
	if len(days) == 1 {
		return days[0].Name
	}
	return fmt.Sprintf("%s..%s", days[0].Name, days[len(days)-1].Name)
}
