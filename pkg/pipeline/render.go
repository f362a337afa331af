package pipeline

import (
	"bytes"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
	"github.com/matzehuels/cardcrop/pkg/preview"
)

// RenderPreview draws a session in the format and view selected by opts.
func RenderPreview(s preview.Session, opts PreviewOptions) ([]byte, error) {
	if err := ValidateFormat(opts.Format); err != nil {
		return nil, err
	}
	cfg := opts.Grid()

	if opts.Format == FormatSVG {
		if opts.Zoom {
			return nil, cerrors.New(cerrors.ErrCodeUnsupported, "zoom view is only available as png")
		}
		return preview.RenderSVG(s, cfg)
	}

	var buf bytes.Buffer
	render := preview.RenderPNG
	if opts.Zoom {
		render = preview.RenderZoomPNG
	}
	if err := render(&buf, s, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
