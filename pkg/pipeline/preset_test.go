package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
)

func TestDecodePreset(t *testing.T) {
	want := Options{Rows: 3, Columns: 3, TopMargin: 18, RowMargin: 4.5, Layout: "duplex"}

	tests := []struct {
		name   string
		format string
		data   string
	}{
		{"toml", PresetTOML, "rows = 3\ncolumns = 3\ntop_margin = 18\nrow_margin = 4.5\nlayout = \"duplex\"\n"},
		{"yaml", PresetYAML, "rows: 3\ncolumns: 3\ntop_margin: 18\nrow_margin: 4.5\nlayout: duplex\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePreset([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("DecodePreset: %v", err)
			}
			if diff := cmp.Diff(want, got, cmp.AllowUnexported(Options{})); diff != "" {
				t.Errorf("preset mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodePresetErrors(t *testing.T) {
	tests := []struct {
		name   string
		format string
		data   string
		code   cerrors.Code
	}{
		{"toml typo", PresetTOML, "rowz = 3\n", cerrors.ErrCodeConfig},
		{"yaml typo", PresetYAML, "colums: 2\n", cerrors.ErrCodeConfig},
		{"toml syntax", PresetTOML, "rows = \n", cerrors.ErrCodeConfig},
		{"unknown format", "json", "{}", cerrors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePreset([]byte(tt.data), tt.format)
			if !cerrors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestDecodePresetEmptyYAML(t *testing.T) {
	got, err := DecodePreset(nil, PresetYAML)
	if err != nil {
		t.Fatalf("DecodePreset: %v", err)
	}
	if got.Rows != DefaultRows || got.Columns != DefaultColumns || got.HasMode() {
		t.Errorf("empty preset decoded to %+v", got)
	}
}

func TestDecodePresetExplicitZeroRows(t *testing.T) {
	got, err := DecodePreset([]byte("rows = 0\ncolumns = 2\n"), PresetTOML)
	if err != nil {
		t.Fatalf("DecodePreset: %v", err)
	}
	if got.Rows != 0 {
		t.Fatalf("Rows = %d, want explicit 0 kept", got.Rows)
	}
	if err := got.ValidateForGrid(); !cerrors.Is(err, cerrors.ErrCodeConfig) {
		t.Errorf("ValidateForGrid() = %v, want CONFIG_ERROR", err)
	}
}

func TestLoadPreset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.YML")
	if err := os.WriteFile(path, []byte("rows: 2\nfold_vertical: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadPreset(path)
	if err != nil {
		t.Fatalf("LoadPreset: %v", err)
	}
	if got.Rows != 2 || !got.FoldVertical {
		t.Errorf("LoadPreset = %+v", got)
	}

	if _, err := LoadPreset(filepath.Join(dir, "sheet.ini")); !cerrors.Is(err, cerrors.ErrCodeInvalidFormat) {
		t.Errorf("ini preset: err = %v", err)
	}
	if _, err := LoadPreset(filepath.Join(dir, "missing.toml")); !cerrors.Is(err, cerrors.ErrCodeFileNotFound) {
		t.Errorf("missing preset: err = %v", err)
	}
}
