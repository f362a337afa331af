package pipeline

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
)

// Preset file formats.
const (
	PresetTOML = "toml"
	PresetYAML = "yaml"
)

// LoadPreset reads crop options from a TOML or YAML file, chosen by
// extension (.toml, .yaml, .yml).
//
//	rows = 3
//	columns = 3
//	top_margin = 18
//	layout = "duplex"
func LoadPreset(path string) (Options, error) {
	format, err := presetFormat(path)
	if err != nil {
		return Options{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Options{}, cerrors.Wrap(cerrors.ErrCodeFileNotFound, err, "preset %s", path)
	}
	if err != nil {
		return Options{}, err
	}
	return DecodePreset(data, format)
}

// DecodePreset parses preset data in the given format on top of
// DefaultOptions. Unknown keys are rejected.
func DecodePreset(data []byte, format string) (Options, error) {
	opts := DefaultOptions()
	switch format {
	case PresetTOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&opts)
		if err != nil {
			return Options{}, cerrors.Wrap(cerrors.ErrCodeConfig, err, "parse toml preset")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Options{}, cerrors.New(cerrors.ErrCodeConfig, "unknown preset key %q", undecoded[0].String())
		}
	case PresetYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
			return Options{}, cerrors.Wrap(cerrors.ErrCodeConfig, err, "parse yaml preset")
		}
	default:
		return Options{}, cerrors.New(cerrors.ErrCodeInvalidFormat, "unsupported preset format %q", format)
	}
	return opts, nil
}

func presetFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return PresetTOML, nil
	case ".yaml", ".yml":
		return PresetYAML, nil
	}
	return "", cerrors.New(cerrors.ErrCodeInvalidFormat, "preset %s: want a .toml, .yaml or .yml file", path)
}
