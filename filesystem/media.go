package filesystem

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/njyeung/kplay/constant"
	"github.com/samber/lo"
)

func hasExt(name string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(name)))
}

// IsMedia reports whether name has a playable extension
func IsMedia(name string) bool {
	return hasExt(name, constant.MediaExtensions)
}

// MediaFiles lists the playable files of dir, sorted by name
func MediaFiles(dir string) ([]string, error) {
	entries, err := API().ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := lo.FilterMap(entries, func(e os.FileInfo, _ int) (string, bool) {
		if e.IsDir() || !IsMedia(e.Name()) {
			return "", false
		}
		return filepath.Join(dir, e.Name()), true
	})
	slices.Sort(files)
	return files, nil
}

// Sibling returns the media file offset positions away from path in its
// directory, wrapping at both ends. path itself is returned when it is the
// only media file.
func Sibling(path string, offset int) (string, error) {
	files, err := MediaFiles(filepath.Dir(path))
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return path, nil
	}

	idx := slices.Index(files, filepath.Clean(path))
	if idx < 0 {
		// path is gone or not a media file, start from the first entry
		idx = 0
		offset = max(offset-1, 0)
	}

	n := len(files)
	return files[((idx+offset)%n+n)%n], nil
}

// Subtitle looks for a subtitle file sharing the media file's base name
func Subtitle(path string) (string, bool) {
	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	for _, ext := range constant.SubtitleExtensions {
		for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
			p := filepath.Join(dir, candidate)
			if ok, err := API().Exists(p); err == nil && ok {
				return p, true
			}
		}
	}
	return "", false
}
