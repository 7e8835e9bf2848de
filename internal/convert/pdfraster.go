package convert

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gen2brain/go-fitz"

	"liteconvert/internal/file"
)

// pdfRasterBackend renders one PDF page to a raster image. Every call opens
// its own fitz document, so concurrent calls for different requests never
// share MuPDF state.
type pdfRasterBackend struct{}

func (b *pdfRasterBackend) Convert(ctx context.Context, req Request, opts Options) error {
	if len(req.Inputs) != 1 {
		return NewUnsupportedInput(fmt.Sprintf("pdf rasterization takes one input, got %d", len(req.Inputs)), nil)
	}
	if req.Page < 0 {
		return NewUnsupportedInput("pdf rasterization needs a page index", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := fitz.New(req.Inputs[0])
	if err != nil {
		return NewCorruptSource("open pdf", err)
	}
	defer doc.Close()

	if req.Page >= doc.NumPage() {
		return NewUnsupportedInput(fmt.Sprintf("page %d out of range (document has %d)", req.Page+1, doc.NumPage()), nil)
	}

	img, err := doc.ImageDPI(req.Page, float64(opts.DPI))
	if err != nil {
		return NewCapabilityError(fmt.Sprintf("rasterize page %d", req.Page+1), err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	switch req.Mode {
	case PdfToJpg:
		err = file.WriteAtomic(req.Output, func(w io.Writer) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: opts.JpgQuality})
		})
	case PdfToPng:
		err = file.WriteAtomic(req.Output, func(w io.Writer) error {
			return png.Encode(w, img)
		})
	default:
		return NewUnsupportedInput(fmt.Sprintf("pdf raster backend cannot produce %q", req.Mode), nil)
	}
	if err != nil {
		return NewIOFailure("write output", err)
	}
	return nil
}
