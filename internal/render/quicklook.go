package render

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// SaveQuicklook writes a picture to disk, downscaling so neither dimension
// exceeds maxDim. The encoding follows the path extension (PNG, JPEG, TIFF,
// BMP or GIF). maxDim <= 0 keeps the full resolution.
func SaveQuicklook(img image.Image, path string, maxDim int) error {
	out := imaging.Clone(img)
	if maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			out = imaging.Fit(out, maxDim, maxDim, imaging.Lanczos)
		}
	}
	if err := imaging.Save(out, path); err != nil {
		return fmt.Errorf("saving quicklook %s: %w", path, err)
	}
	return nil
}
