package build

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eolab-hsrw/easypx4/internal/textedit"
)

func TestInsertOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "CMakeLists.txt")
	if err := os.WriteFile(path, []byte("px4_add_romfs_files(\n\trcS\n)\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := insertOnce(textedit.Anchor{Path: path, Match: componentsAnchor, Line: "foo bar"}); err != nil {
		t.Fatalf("insertOnce() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got, want := string(data), "px4_add_romfs_files(\nfoo bar\n\trcS\n)\n"; got != want {
		t.Fatalf("file = %q, want %q", got, want)
	}

	err = insertOnce(textedit.Anchor{Path: path, Match: firmwareAnchor, Line: "12345_drone"})
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("insertOnce() error = %v, want missing anchor in %s", err, path)
	}
}
