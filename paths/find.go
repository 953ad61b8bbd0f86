// Package paths locates Tibia datafiles on the local filesystem or over HTTP.
package paths

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// EnvDir names an environment variable holding a directory searched before
// all others.
const EnvDir = "TIBIA_ASSETS_DIR"

// ReadSeekCloser is what Open returns for both local and HTTP files.
type ReadSeekCloser = io.ReadSeekCloser

var (
	searchDirsLock sync.Mutex
	searchDirs     []string
)

// SetSearchDirs replaces the directories Find looks in. Passing nil restores
// the defaults.
func SetSearchDirs(dirs []string) {
	searchDirsLock.Lock()
	defer searchDirsLock.Unlock()
	searchDirs = append([]string(nil), dirs...)
}

// SearchDirs returns the directories Find looks in, in order.
func SearchDirs() []string {
	searchDirsLock.Lock()
	defer searchDirsLock.Unlock()
	if searchDirs != nil {
		return append([]string(nil), searchDirs...)
	}
	return defaultSearchDirs()
}

func defaultSearchDirs() []string {
	var dirs []string
	if d := os.Getenv(EnvDir); d != "" {
		dirs = append(dirs, d)
	}
	dirs = append(dirs, ".", "datafiles", filepath.Join("..", "datafiles"))
	if d := os.Getenv("TEST_SRCDIR"); d != "" {
		dirs = append(dirs, filepath.Join(d, "go_tibia", "datafiles"))
	}
	return dirs
}

func isURL(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

// Find locates the passed datafile shortname and returns an absolute or
// relative path to find the datafile at.
//
// For example, for "Tibia.spr" it may return "datafiles/Tibia.spr". An empty
// string means the file was not found. URLs are returned unchanged.
func Find(fileName string) string {
	if isURL(fileName) {
		return fileName
	}
	if filepath.IsAbs(fileName) {
		if _, err := os.Stat(fileName); err == nil {
			return fileName
		}
		return ""
	}
	for _, dir := range SearchDirs() {
		path := filepath.Join(dir, fileName)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			glog.V(2).Infof("paths.Find(%q)=%s", fileName, path)
			return path
		}
	}
	glog.V(2).Infof("paths.Find(%q): not found in %v", fileName, SearchDirs())
	return ""
}

// Open locates the passed file in the same locations that Find would look, and
// opens it. If Find returns an empty string, an error wrapping os.ErrNotExist
// is returned.
func Open(fileName string) (ReadSeekCloser, error) {
	path := Find(fileName)
	if path == "" {
		return nil, errors.Wrapf(os.ErrNotExist, "paths: %q not found", fileName)
	}
	return NoFindOpen(path)
}

// NoFindOpen opens the passed path or URL as is, without searching.
func NoFindOpen(fileName string) (ReadSeekCloser, error) {
	if isURL(fileName) {
		return openHTTP(fileName)
	}
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "paths")
	}
	return f, nil
}

// ReadFile locates and reads a whole datafile.
func ReadFile(fileName string) ([]byte, error) {
	f, err := Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "paths: reading %q", fileName)
	}
	return b, nil
}
