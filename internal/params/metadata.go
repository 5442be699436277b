package params

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// Definition is one parameter as described by the firmware build.
type Definition struct {
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Default string `xml:"default,attr"`
	Group   string `xml:"-"`
}

// Metadata indexes the parameters.xml produced by a PX4 build.
type Metadata struct {
	byName map[string]Definition
}

type metadataDocument struct {
	Groups []struct {
		Name       string       `xml:"name,attr"`
		Parameters []Definition `xml:"parameter"`
	} `xml:"group"`
}

// ParseMetadata decodes a parameters.xml document.
func ParseMetadata(r io.Reader) (Metadata, error) {
	var doc metadataDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Metadata{}, fmt.Errorf("decode parameter metadata: %w", err)
	}
	meta := Metadata{byName: make(map[string]Definition)}
	for _, group := range doc.Groups {
		for _, def := range group.Parameters {
			def.Group = group.Name
			meta.byName[def.Name] = def
		}
	}
	return meta, nil
}

// LoadMetadata reads parameters.xml from path.
func LoadMetadata(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()
	return ParseMetadata(f)
}

// Has reports whether name is a known parameter.
func (m Metadata) Has(name string) bool {
	_, ok := m.byName[name]
	return ok
}

// Lookup returns the definition of name.
func (m Metadata) Lookup(name string) (Definition, bool) {
	def, ok := m.byName[name]
	return def, ok
}

// Len returns the number of known parameters.
func (m Metadata) Len() int {
	return len(m.byName)
}
