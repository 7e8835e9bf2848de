package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	"github.com/rwcarlsen/goexif/exif"

	"liteconvert/internal/file"
)

// heicBackend decodes HEIC/HEIF sources and encodes them as JPEG or PNG.
// Each call decodes its own source, so concurrent calls for different
// requests are safe.
type heicBackend struct{}

func (b *heicBackend) Convert(ctx context.Context, req Request, opts Options) error {
	if len(req.Inputs) != 1 {
		return NewUnsupportedInput(fmt.Sprintf("heic conversion takes one input, got %d", len(req.Inputs)), nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := os.ReadFile(req.Inputs[0])
	if err != nil {
		return NewIOFailure("read source", err)
	}

	img, err := goheif.Decode(bytes.NewReader(raw))
	if err != nil {
		return NewCorruptSource("decode heic", err)
	}

	if opts.ExifOrientation {
		img = applyOrientation(img, orientationOf(raw))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	switch req.Mode {
	case HeicToJpg:
		err = file.WriteAtomic(req.Output, func(w io.Writer) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: opts.JpgQuality})
		})
	case HeicToPng:
		err = file.WriteAtomic(req.Output, func(w io.Writer) error {
			return png.Encode(w, img)
		})
	default:
		return NewUnsupportedInput(fmt.Sprintf("heic backend cannot produce %q", req.Mode), nil)
	}
	if err != nil {
		return NewIOFailure("write output", err)
	}
	return nil
}

// orientationOf extracts the EXIF orientation value (1..8) from raw HEIC
// bytes. Missing or malformed EXIF means no transform (1).
func orientationOf(raw []byte) int {
	exifData, err := goheif.ExtractExif(bytes.NewReader(raw))
	if err != nil || len(exifData) == 0 {
		return 1
	}
	x, err := exif.Decode(bytes.NewReader(exifData))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

// applyOrientation maps the EXIF orientation value onto the matching
// transpose. Values follow the EXIF 2.3 table.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}
