// Package serial computes cache-busting serial numbers from the modification
// times of static assets, so URLs and cache keys built from them change
// whenever the assets do.
package serial

import (
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// Latest returns the newest modification time, in Unix seconds, of any file
// under roots. Roots that do not exist are skipped. It returns 0 when no
// file is found.
func Latest(roots ...string) (int64, error) {
	return latest(roots, nil)
}

func latest(roots []string, match func(name string) bool) (int64, error) {
	var serial int64
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root && errors.Is(err, fs.ErrNotExist) {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() || (match != nil && !match(d.Name())) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if mtime := info.ModTime().Unix(); mtime > serial {
				serial = mtime
			}
			return nil
		})
		if err != nil {
			return 0, errors.Wrapf(err, "serial: walk %s", root)
		}
	}
	return serial, nil
}

// Media returns the serial of the media directories under staticRoot. No
// dirs means the whole of staticRoot.
func Media(staticRoot string, dirs []string) (int64, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	roots := make([]string, len(dirs))
	for i, dir := range dirs {
		roots[i] = filepath.Join(staticRoot, dir)
	}
	return Latest(roots...)
}

// Templates returns the serial of the template directories. No dirs means
// the current directory.
func Templates(dirs []string) (int64, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	return Latest(dirs...)
}

// Locale returns the serial of the compiled message catalogs (*.mo) under
// the locale directories.
func Locale(dirs []string) (int64, error) {
	return latest(dirs, func(name string) bool {
		return strings.HasSuffix(name, ".mo")
	})
}

// Set computes the media and template serials once and then serves them
// from memory. The zero value serves the current directory for both.
type Set struct {
	StaticRoot   string
	MediaDirs    []string
	TemplateDirs []string

	once      sync.Once
	media     int64
	templates int64
	err       error
}

func (s *Set) load() {
	s.once.Do(func() {
		if s.media, s.err = Media(s.StaticRoot, s.MediaDirs); s.err != nil {
			return
		}
		s.templates, s.err = Templates(s.TemplateDirs)
	})
}

// Media returns the media serial.
func (s *Set) Media() (int64, error) {
	s.load()
	return s.media, s.err
}

// Templates returns the template serial.
func (s *Set) Templates() (int64, error) {
	s.load()
	return s.templates, s.err
}
