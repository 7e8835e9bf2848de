package convert

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"liteconvert/internal/file"
)

// pdfComposeBackend lays JPEG/PNG images onto PDF pages. One call composes
// one document (a single image for the separate mode, all inputs in order
// for the merged mode). The document is built in memory and written with a
// temp-file rename, so a failed merge never leaves a partial output.
type pdfComposeBackend struct{}

// Page geometry in millimetres.
var pageSizesMM = map[PageSize]gofpdf.SizeType{
	PageA4:     {Wd: 210, Ht: 297},
	PageLetter: {Wd: 215.9, Ht: 279.4},
}

const mmPerInch = 25.4

func (b *pdfComposeBackend) Convert(ctx context.Context, req Request, opts Options) error {
	if len(req.Inputs) == 0 {
		return NewUnsupportedInput("pdf composition needs at least one input", nil)
	}
	if req.Mode == ImagesToPdfSeparate && len(req.Inputs) != 1 {
		return NewUnsupportedInput(fmt.Sprintf("separate pdf mode takes one input, got %d", len(req.Inputs)), nil)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "mm", SizeStr: "A4"})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	for _, input := range req.Inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.addPage(pdf, input, opts); err != nil {
			return err
		}
	}
	if pdf.Err() {
		return NewCapabilityError("compose pdf", pdf.Error())
	}

	err := file.WriteAtomic(req.Output, func(w io.Writer) error {
		return pdf.Output(w)
	})
	if err != nil {
		return NewIOFailure("write output", err)
	}
	return nil
}

// addPage appends one page holding input, honoring page size, fit mode, and
// margins.
func (b *pdfComposeBackend) addPage(pdf *gofpdf.Fpdf, input string, opts Options) error {
	imgW, imgH, imgType, err := probeImage(input)
	if err != nil {
		return err
	}

	// Natural image size on paper at the configured DPI.
	naturalW := float64(imgW) * mmPerInch / float64(opts.DPI)
	naturalH := float64(imgH) * mmPerInch / float64(opts.DPI)

	m := opts.Margins
	page, fixed := pageSizesMM[opts.PageSize]
	if !fixed {
		page = gofpdf.SizeType{Wd: naturalW + m.Left + m.Right, Ht: naturalH + m.Top + m.Bottom}
	}
	pdf.AddPageFormat("P", page)

	boxW := page.Wd - m.Left - m.Right
	boxH := page.Ht - m.Top - m.Bottom
	if boxW <= 0 || boxH <= 0 {
		return NewUnsupportedInput("margins leave no printable area", nil)
	}

	x, y, w, h := layout(naturalW, naturalH, m.Left, m.Top, boxW, boxH, opts.Fit)

	imgOpts := gofpdf.ImageOptions{ImageType: imgType}
	pdf.RegisterImageOptions(input, imgOpts)
	if pdf.Err() {
		return NewCorruptSource("register image", pdf.Error())
	}

	clip := opts.Fit == FitCover && fixed
	if clip {
		pdf.ClipRect(m.Left, m.Top, boxW, boxH, false)
	}
	pdf.ImageOptions(input, x, y, w, h, false, imgOpts, 0, "")
	if clip {
		pdf.ClipEnd()
	}
	if pdf.Err() {
		return NewCapabilityError("place image", pdf.Error())
	}
	return nil
}

// layout computes the image rectangle inside the content box for a fit mode.
// Contain letterboxes, Cover fills (overflow is clipped by the caller),
// Stretch ignores aspect ratio.
func layout(imgW, imgH, boxX, boxY, boxW, boxH float64, fit FitMode) (x, y, w, h float64) {
	if fit == FitStretch {
		return boxX, boxY, boxW, boxH
	}

	scaleW := boxW / imgW
	scaleH := boxH / imgH
	scale := scaleW
	if fit == FitCover {
		if scaleH > scale {
			scale = scaleH
		}
	} else {
		if scaleH < scale {
			scale = scaleH
		}
	}

	w = imgW * scale
	h = imgH * scale
	x = boxX + (boxW-w)/2
	y = boxY + (boxH-h)/2
	return x, y, w, h
}

// probeImage reads image dimensions and maps the format onto the type tag
// gofpdf expects.
func probeImage(path string) (w, h int, imgType string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, "", NewIOFailure("open image", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, "", NewCorruptSource("decode image header", err)
	}
	switch format {
	case "jpeg":
		imgType = "JPG"
	case "png":
		imgType = "PNG"
	default:
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		return 0, 0, "", NewUnsupportedInput(fmt.Sprintf("unsupported image format %q (.%s)", format, ext), nil)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, "", NewCorruptSource("image has no dimensions", nil)
	}
	return cfg.Width, cfg.Height, imgType, nil
}
