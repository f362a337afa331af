package server

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/pipeline"
)

// multipartMemory is the part of an upload kept in memory before spilling
// to temp files.
const multipartMemory = 8 << 20

// readUpload parses a multipart request and returns the "file" part.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "parse multipart form")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "missing file field")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "read upload")
	}
	return data, nil
}

// optionsFromForm reads crop options using the field names of the JSON API.
func optionsFromForm(form url.Values) (pipeline.Options, error) {
	f := formReader{form: form}
	opts := pipeline.Options{
		Rows:           f.intFieldOr("rows", pipeline.DefaultRows),
		Columns:        f.intFieldOr("columns", pipeline.DefaultColumns),
		TopMargin:      f.floatField("top_margin"),
		BottomMargin:   f.floatField("bottom_margin"),
		LeftMargin:     f.floatField("left_margin"),
		RightMargin:    f.floatField("right_margin"),
		RowMargin:      f.floatField("row_margin"),
		ColumnMargin:   f.floatField("column_margin"),
		StartingPage:   f.intField("starting_page"),
		Layout:         strings.TrimSpace(form.Get("layout")),
		NoBack:         f.boolField("no_back"),
		Duplex:         f.boolField("duplex"),
		FoldVertical:   f.boolField("fold_vertical"),
		FoldHorizontal: f.boolField("fold_horizontal"),
		Refresh:        f.boolField("refresh"),
	}
	return opts, f.err
}

// previewOptionsFromForm reads crop options plus the preview fields.
func previewOptionsFromForm(form url.Values) (pipeline.PreviewOptions, error) {
	opts, err := optionsFromForm(form)
	if err != nil {
		return pipeline.PreviewOptions{}, err
	}
	f := formReader{form: form}
	p := pipeline.PreviewOptions{
		Options:      opts,
		Page:         f.intField("page"),
		CanvasWidth:  f.intField("canvas_width"),
		CanvasHeight: f.intField("canvas_height"),
		LensX:        f.floatField("lens_x"),
		LensY:        f.floatField("lens_y"),
		Format:       strings.ToLower(strings.TrimSpace(form.Get("format"))),
		Zoom:         f.boolField("zoom"),
		Raster:       f.boolField("raster"),
	}
	return p, f.err
}

// formReader parses typed fields and keeps the first error. Empty fields
// read as zero.
type formReader struct {
	form url.Values
	err  error
}

func (f *formReader) value(key string) string {
	return strings.TrimSpace(f.form.Get(key))
}

func (f *formReader) fail(key, v string, err error) {
	if f.err == nil {
		f.err = cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "field %s: invalid value %q", key, v)
	}
}

func (f *formReader) intField(key string) int {
	v := f.value(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f.fail(key, v, err)
	}
	return n
}

// intFieldOr returns def when the field is absent. An explicit value,
// including zero, is returned as given.
func (f *formReader) intFieldOr(key string, def int) int {
	if f.value(key) == "" {
		return def
	}
	return f.intField(key)
}

func (f *formReader) floatField(key string) float64 {
	v := f.value(key)
	if v == "" {
		return 0
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		f.fail(key, v, err)
	}
	return x
}

// boolField accepts checkbox values ("on") as well as strconv.ParseBool forms.
func (f *formReader) boolField(key string) bool {
	v := strings.ToLower(f.value(key))
	switch v {
	case "":
		return false
	case "on", "yes":
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		f.fail(key, v, err)
	}
	return b
}
