package assets

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// MaxThumbnailWidth matches the widest cover column of the book table.
const MaxThumbnailWidth = 180

// Thumbnail decodes the image at src and writes it to w as a JPEG no wider
// than maxWidth, keeping the aspect ratio. Images are never upscaled.
func Thumbnail(w io.Writer, src string, maxWidth int) error {
	if maxWidth <= 0 || maxWidth > MaxThumbnailWidth {
		maxWidth = MaxThumbnailWidth
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("assets: open cover: %w", err)
	}
	defer f.Close()

	srcImg, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("assets: decode cover: %w", err)
	}

	srcBounds := srcImg.Bounds()
	targetW, targetH := fitWidth(srcBounds.Dx(), srcBounds.Dy(), maxWidth)

	dstImg := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.BiLinear.Scale(dstImg, dstImg.Bounds(), srcImg, srcBounds, draw.Over, nil)

	if err := jpeg.Encode(w, dstImg, &jpeg.Options{Quality: 80}); err != nil {
		return fmt.Errorf("assets: encode thumbnail: %w", err)
	}
	return nil
}

func fitWidth(srcW, srcH, maxWidth int) (int, int) {
	if srcW <= maxWidth || srcW == 0 {
		return srcW, srcH
	}
	h := srcH * maxWidth / srcW
	if h < 1 {
		h = 1
	}
	return maxWidth, h
}
