// Package textedit edits text files owned by the firmware tree at literal anchors.
package textedit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotRegularFile is returned when the target of an edit is missing or is not a
// regular file.
var ErrNotRegularFile = errors.New("not a regular file")

// Anchor is a single insertion: Line goes above every line of Path containing Match.
type Anchor struct {
	Path  string
	Match string
	Line  string
}

// Apply performs the insertion described by a.
func (a Anchor) Apply() (int, error) {
	return InsertBefore(a.Path, a.Match, a.Line)
}

// InsertBefore writes line immediately before every line of the file at path that
// contains match as a literal substring, and returns the number of insertions.
//
// The file is rewritten through a temporary sibling which then replaces the
// original, so readers never observe a partially written file. Calling it twice
// inserts twice.
func InsertBefore(path, match, line string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s: %w", path, ErrNotRegularFile)
	}

	in, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	inserted, err := copyWithInsertions(tmp, in, match, strings.TrimRight(line, "\r\n"))
	if err != nil {
		return 0, fmt.Errorf("rewrite %s: %w", path, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("replace %s: %w", path, err)
	}
	committed = true
	return inserted, nil
}

func copyWithInsertions(dst io.Writer, src io.Reader, match, line string) (int, error) {
	reader := bufio.NewReader(src)
	writer := bufio.NewWriter(dst)
	inserted := 0

	for {
		current, readErr := reader.ReadString('\n')
		if current != "" {
			if strings.Contains(current, match) {
				if _, err := writer.WriteString(line + "\n"); err != nil {
					return 0, err
				}
				inserted++
			}
			if _, err := writer.WriteString(current); err != nil {
				return 0, err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return 0, readErr
		}
	}

	if err := writer.Flush(); err != nil {
		return 0, err
	}
	return inserted, nil
}
