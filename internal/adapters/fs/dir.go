package fs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// staleSuffixes are the file types the encoder leaves behind in the output directory.
var staleSuffixes = []string{".ts", ".m4s", ".m3u8", ".m3u8.tmp", ".tmp"}

// PrepareDir makes sure dir exists. When clean is true, leftovers from a previous
// run (segments, playlists, temp files) are removed so players never see a stale
// playlist pointing at segments that will not be rewritten.
// Returns the number of files removed.
func PrepareDir(dir string, clean bool) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	if !clean {
		return 0, nil
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range ents {
		if e.IsDir() || !isStreamFile(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func isStreamFile(name string) bool {
	for _, suffix := range staleSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// DirSize returns the total size of the regular files directly inside dir.
func DirSize(dir string) (int64, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// rotated away by the encoder between ReadDir and Info
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
