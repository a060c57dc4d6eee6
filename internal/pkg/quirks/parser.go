package quirks

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gethiox/evmoused/internal/pkg/input"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type identifier struct {
	Bus     uint16 `toml:"bus" yaml:"bus"`
	Vendor  uint16 `toml:"vendor" yaml:"vendor"`
	Product uint16 `toml:"product" yaml:"product"`
	Version uint16 `toml:"version" yaml:"version"`
}

type quirkFile struct {
	Name       string                 `toml:"name" yaml:"name"`
	Identifier identifier             `toml:"identifier" yaml:"identifier"`
	Attributes map[string]interface{} `toml:"attributes" yaml:"attributes"`
}

type Format int

const (
	TOML Format = iota
	YAML
)

// FormatOf picks the decoder by file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, true
	case ".yaml", ".yml":
		return YAML, true
	}
	return 0, false
}

// ParseData decodes and validates a single quirk entry.
func ParseData(data []byte, format Format) (Quirk, error) {
	var f quirkFile

	switch format {
	case TOML:
		d := toml.NewDecoder(bytes.NewReader(data))
		d.DisallowUnknownFields()
		err := d.Decode(&f)
		if err != nil {
			return Quirk{}, fmt.Errorf("parsing toml failed: %w", err)
		}
	case YAML:
		d := yaml.NewDecoder(bytes.NewReader(data))
		d.KnownFields(true)
		err := d.Decode(&f)
		if err != nil && err != io.EOF {
			return Quirk{}, fmt.Errorf("parsing yaml failed: %w", err)
		}
	default:
		return Quirk{}, fmt.Errorf("unknown quirk format %d", format)
	}

	q := Quirk{
		Name: f.Name,
		ID: input.InputID{
			Bus:     f.Identifier.Bus,
			Vendor:  f.Identifier.Vendor,
			Product: f.Identifier.Product,
			Version: f.Identifier.Version,
		},
		Values: make(map[string]string, len(f.Attributes)),
	}
	for key, raw := range f.Attributes {
		value, err := normalize(raw)
		if err != nil {
			return Quirk{}, fmt.Errorf("%s: %w", key, err)
		}
		q.Values[key] = value
	}

	err := q.Validate()
	if err != nil {
		return Quirk{}, err
	}
	return q, nil
}

func readQuirk(path string, class input.Class, user bool) (Quirk, error) {
	format, ok := FormatOf(path)
	if !ok {
		return Quirk{}, fmt.Errorf("unsupported quirk file extension: %s", path)
	}

	fd, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return Quirk{}, fmt.Errorf("opening quirk file failed: %w", err)
	}
	defer fd.Close()

	data, err := io.ReadAll(fd)
	if err != nil {
		return Quirk{}, fmt.Errorf("reading file data failed: %w", err)
	}

	q, err := ParseData(data, format)
	if err != nil {
		return Quirk{}, fmt.Errorf("%s: %w", path, err)
	}
	q.Class = class
	q.Source = filepath.Base(path)
	q.User = user
	return q, nil
}
