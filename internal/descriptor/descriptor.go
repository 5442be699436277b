// Package descriptor loads and validates the declarative description of a drone
// variant (info.toml) and the directory that carries it.
package descriptor

import (
	"fmt"
	"strings"
)

// DefaultCustomFWVersion is used when custom_fw_version is omitted.
const DefaultCustomFWVersion = "0.0.0"

const (
	identifierPattern      = `^[A-Za-z0-9][A-Za-z0-9_.-]*$`
	px4VersionPattern      = `^v\d+\.\d+\.\d+(-(alpha|beta|rc)\d+|-dev)?$`
	customFWVersionPattern = `^(alpha|beta|rc)\d+$|^\d+\.\d+\.\d+(-(alpha|beta|rc)\d+|-dev)?$`
	commitPattern          = `^[0-9a-f]{7,40}$`
)

// InfoSchema is the schema of the descriptor file.
var InfoSchema = Schema{
	{Name: "name", Shape: Pattern(identifierPattern), Required: true},
	{Name: "id", Shape: Integer, Required: true},
	{Name: "vendor", Shape: Pattern(identifierPattern), Required: true},
	{Name: "model", Shape: Pattern(identifierPattern), Required: true},
	{Name: "px4_version", Shape: Pattern(px4VersionPattern), Required: true},
	{Name: "px4_commit", Shape: Optional(Pattern(commitPattern))},
	{Name: "custom_fw_version", Shape: Optional(Pattern(customFWVersionPattern))},
	{Name: "components", Shape: Optional(AnyOf(String, ListOf(String)))},
}

// Descriptor is a validated drone description.
type Descriptor struct {
	Name            string   `yaml:"name"`
	ID              int64    `yaml:"id"`
	Vendor          string   `yaml:"vendor"`
	Model           string   `yaml:"model"`
	PX4Version      string   `yaml:"px4_version"`
	PX4Commit       string   `yaml:"px4_commit,omitempty"`
	CustomFWVersion string   `yaml:"custom_fw_version"`
	Components      []string `yaml:"components,omitempty"`
}

// AirframeName is the file name of the airframe inside the firmware tree.
func (d Descriptor) AirframeName() string {
	return fmt.Sprintf("%d_%s", d.ID, d.Name)
}

// HasComponents reports whether the descriptor declares extra components.
func (d Descriptor) HasComponents() bool {
	return len(d.Components) > 0
}

// IsPrerelease reports whether custom_fw_version carries an alpha, beta or rc marker.
func (d Descriptor) IsPrerelease() bool {
	for _, marker := range []string{"alpha", "beta", "rc"} {
		if strings.Contains(d.CustomFWVersion, marker) {
			return true
		}
	}
	return false
}

// FromMap validates raw against InfoSchema and converts it.
func FromMap(raw map[string]any) (Descriptor, error) {
	if err := InfoSchema.Validate(raw); err != nil {
		return Descriptor{}, err
	}

	id, _ := asInt64(raw["id"])
	if id <= 0 {
		return Descriptor{}, &ValidationError{Field: "id", Kind: KindRange, Detail: fmt.Sprintf("value %d must be positive", id)}
	}

	d := Descriptor{
		Name:            raw["name"].(string),
		ID:              id,
		Vendor:          raw["vendor"].(string),
		Model:           raw["model"].(string),
		PX4Version:      raw["px4_version"].(string),
		CustomFWVersion: DefaultCustomFWVersion,
	}
	if commit, ok := raw["px4_commit"].(string); ok {
		d.PX4Commit = commit
	}
	if version, ok := raw["custom_fw_version"].(string); ok {
		d.CustomFWVersion = version
	}

	switch components := raw["components"].(type) {
	case string:
		d.Components = strings.Fields(components)
	case []any:
		for _, item := range components {
			d.Components = append(d.Components, item.(string))
		}
	}
	return d, nil
}
