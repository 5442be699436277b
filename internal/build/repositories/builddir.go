package repositories

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eolab-hsrw/easypx4/internal/build"
)

var _ build.TargetRepository = (*BuildDirRepository)(nil)

// BuildDirRepository reads targets from the "build" directory of a PX4 checkout,
// where every built target has a directory named after it.
type BuildDirRepository struct {
	Dir string
}

// Get reports whether name was built.
func (r *BuildDirRepository) Get(name string) (build.Target, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" || filepath.Base(name) != name {
		return build.Target{}, false, errors.New("invalid target name")
	}
	info, err := os.Stat(filepath.Join(r.Dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return build.Target{}, false, nil
		}
		return build.Target{}, false, err
	}
	if !info.IsDir() {
		return build.Target{}, false, nil
	}
	return r.target(name, info), true, nil
}

// ListAll returns every built target sorted by name. A checkout that was never
// built has none.
func (r *BuildDirRepository) ListAll() ([]build.Target, error) {
	entries, err := os.ReadDir(r.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	targets := make([]build.Target, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		targets = append(targets, r.target(entry.Name(), info))
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
	return targets, nil
}

func (r *BuildDirRepository) target(name string, dirInfo fs.FileInfo) build.Target {
	t := build.Target{Name: name, BuiltAt: dirInfo.ModTime()}
	image := filepath.Join(r.Dir, name, name+".px4")
	if info, err := os.Stat(image); err == nil && info.Mode().IsRegular() {
		t.Firmware = image
		t.BuiltAt = info.ModTime()
	}
	return t
}
