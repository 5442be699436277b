// Package params checks the parameter assignments of a PX4 airframe file.
package params

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// MaxNameLength is the longest parameter name PX4 accepts.
const MaxNameLength = 16

var namePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

// Assignment is one "param set" or "param set-default" line.
type Assignment struct {
	Line    int
	Name    string
	Value   string
	Default bool
}

// Problem is a finding about one assignment.
type Problem struct {
	Line    int
	Name    string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("line %d: %s: %s", p.Line, p.Name, p.Message)
}

// ParseAirframe collects parameter assignments. Comments and other shell lines are
// ignored.
func ParseAirframe(r io.Reader) ([]Assignment, error) {
	var out []Assignment
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "param" {
			continue
		}
		var isDefault bool
		switch fields[1] {
		case "set-default":
			isDefault = true
		case "set":
		default:
			continue
		}
		a := Assignment{Line: lineNo, Default: isDefault}
		if len(fields) > 2 {
			a.Name = fields[2]
		}
		if len(fields) > 3 {
			a.Value = strings.Join(fields[3:], " ")
		}
		out = append(out, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read airframe: %w", err)
	}
	return out, nil
}

// ParseAirframeFile opens path and parses it.
func ParseAirframeFile(path string) ([]Assignment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseAirframe(f)
}

// Check reports syntax problems that would make PX4 reject or ignore a line.
func Check(assignments []Assignment) []Problem {
	var problems []Problem
	seen := make(map[string]int, len(assignments))
	for _, a := range assignments {
		report := func(format string, args ...any) {
			problems = append(problems, Problem{Line: a.Line, Name: a.Name, Message: fmt.Sprintf(format, args...)})
		}
		if a.Name == "" {
			report("missing parameter name")
			continue
		}
		if len(a.Name) > MaxNameLength {
			report("name is %d characters, limit is %d", len(a.Name), MaxNameLength)
		}
		if !namePattern.MatchString(a.Name) {
			report("name may only contain A-Z, 0-9 and _")
		}
		if a.Value == "" {
			report("missing value")
		} else if !numeric(a.Value) {
			report("value %q is not a number", a.Value)
		}
		if first, ok := seen[a.Name]; ok {
			report("already set on line %d", first)
		} else {
			seen[a.Name] = a.Line
		}
	}
	return problems
}

// CheckKnown reports assignments to parameters the firmware does not define.
func CheckKnown(assignments []Assignment, meta Metadata) []Problem {
	var problems []Problem
	for _, a := range assignments {
		if a.Name == "" || meta.Has(a.Name) {
			continue
		}
		problems = append(problems, Problem{Line: a.Line, Name: a.Name, Message: "unknown parameter"})
	}
	return problems
}

func numeric(value string) bool {
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return true
	}
	// hex bitmasks are common for *_MASK parameters
	_, err := strconv.ParseInt(value, 0, 64)
	return err == nil
}
