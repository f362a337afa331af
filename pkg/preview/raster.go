package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"

	cerrors "github.com/matzehuels/cardcrop/pkg/errors"
)

// Rasterizer renders one page of a PDF to a bitmap no larger than
// maxW×maxH. page is 0-based.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, page, maxW, maxH int) (image.Image, error)
}

// Poppler rasterizes pages with poppler's pdftoppm.
type Poppler struct {
	// Binary is the pdftoppm executable; defaults to "pdftoppm" on PATH.
	Binary string
}

// Available reports whether the pdftoppm binary can be found.
func (p Poppler) Available() bool {
	_, err := exec.LookPath(p.binary())
	return err == nil
}

func (p Poppler) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return "pdftoppm"
}

// Rasterize pipes pdf through pdftoppm and decodes the PNG it prints.
func (p Poppler) Rasterize(ctx context.Context, pdf []byte, page, maxW, maxH int) (image.Image, error) {
	bin, err := exec.LookPath(p.binary())
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeUnsupported, err, "%s not found", p.binary())
	}

	n := strconv.Itoa(page + 1)
	cmd := exec.CommandContext(ctx, bin,
		"-png",
		"-singlefile",
		"-f", n,
		"-l", n,
		"-scale-to-x", strconv.Itoa(maxW),
		"-scale-to-y", strconv.Itoa(maxH),
		"-", "-",
	)
	cmd.Stdin = bytes.NewReader(pdf)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, cerrors.Wrap(cerrors.ErrCodeSource, fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr.Bytes())), "rasterize page %d", page+1)
		}
		return nil, cerrors.Wrap(cerrors.ErrCodeInternal, err, "run %s", bin)
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeSource, err, "decode raster of page %d", page+1)
	}
	return img, nil
}
