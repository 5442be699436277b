package descriptor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Role names a file a source directory must provide.
type Role string

const (
	RoleDescriptor Role = "descriptor"
	RoleParams     Role = "params"
	RoleModules    Role = "modules"
)

// FileRule requires one of Names to be present as a regular file.
type FileRule struct {
	Role     Role
	Names    []string
	Required bool
}

// Layout is the set of files a source directory provides for one build variant.
type Layout struct {
	Name  string
	Rules []FileRule
}

var descriptorNames = []string{"info.toml", "info.yaml", "info.yml"}

// FirmwareLayout is the source directory layout of hardware builds.
func FirmwareLayout() Layout {
	return Layout{
		Name: "firmware",
		Rules: []FileRule{
			{Role: RoleDescriptor, Names: descriptorNames, Required: true},
			{Role: RoleParams, Names: []string{"params.airframe"}, Required: true},
			{Role: RoleModules, Names: []string{"board.modules"}, Required: true},
		},
	}
}

// SITLLayout is the source directory layout of simulation builds.
func SITLLayout() Layout {
	return Layout{
		Name: "sitl",
		Rules: []FileRule{
			{Role: RoleDescriptor, Names: descriptorNames, Required: true},
			{Role: RoleParams, Names: []string{"params.airframe"}, Required: true},
			{Role: RoleModules, Names: []string{"sitl.modules"}, Required: true},
		},
	}
}

// LayoutError lists required files missing from a source directory.
type LayoutError struct {
	Dir     string
	Missing []string
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("missing required files in %s: %s", e.Dir, strings.Join(e.Missing, ", "))
}

// Resolve maps every rule of l onto an existing file in dir.
func (l Layout) Resolve(dir string) (map[Role]string, error) {
	files := make(map[Role]string, len(l.Rules))
	var missing []string

	for _, rule := range l.Rules {
		found := ""
		for _, name := range rule.Names {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				found = path
				break
			}
		}
		if found != "" {
			files[rule.Role] = found
			continue
		}
		if rule.Required {
			missing = append(missing, strings.Join(rule.Names, " | "))
		}
	}

	if len(missing) > 0 {
		return nil, &LayoutError{Dir: dir, Missing: missing}
	}
	return files, nil
}

// Directory is a validated source directory together with its descriptor.
type Directory struct {
	Path       string
	Layout     Layout
	Files      map[Role]string
	Descriptor Descriptor
}

// File returns the path of the file that plays role.
func (d *Directory) File(role Role) string {
	return d.Files[role]
}

// LoadDirectory validates dir against layout and loads its descriptor.
func LoadDirectory(dir string, layout Layout) (*Directory, error) {
	dir, err := ValidDir(dir)
	if err != nil {
		return nil, err
	}
	files, err := layout.Resolve(dir)
	if err != nil {
		return nil, err
	}
	d, err := LoadFile(files[RoleDescriptor])
	if err != nil {
		return nil, err
	}
	return &Directory{
		Path:       dir,
		Layout:     layout,
		Files:      files,
		Descriptor: d,
	}, nil
}

// FindFile returns the descriptor file inside dir, trying info.toml, info.yaml and
// info.yml in that order.
func FindFile(dir string) (string, error) {
	for _, name := range descriptorNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", &LayoutError{Dir: dir, Missing: []string{strings.Join(descriptorNames, " | ")}}
}

// ErrNotDirectory is returned by ValidDir for paths that exist but are not directories.
var ErrNotDirectory = errors.New("not a directory")

// ValidDir checks that path exists and is a directory, returning its absolute form.
func ValidDir(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("directory path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("path does not exist: %s", abs)
		}
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}
	return abs, nil
}
