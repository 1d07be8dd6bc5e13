package combiner

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ImagePixels returns the pixels of img as tightly packed, non-premultiplied
// RGBA8 rows, the layout UploadTexture takes.
func ImagePixels(img image.Image) (pixels []byte, width, height int) {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && n.Stride == 4*b.Dx() && b.Min == n.Rect.Min {
		return n.Pix[:4*b.Dx()*b.Dy()], b.Dx(), b.Dy()
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix, b.Dx(), b.Dy()
}

// UploadImage uploads img to the selected texture.
func UploadImage(r *Renderer, img image.Image) error {
	pixels, w, h := ImagePixels(img)
	if w == 0 || h == 0 {
		return fmt.Errorf("combiner: upload empty image %v", img.Bounds())
	}
	return r.UploadTexture(pixels, w, h)
}

// UploadImageScaled resamples img to width x height with bilinear
// filtering and uploads it to the selected texture.
func UploadImageScaled(r *Renderer, img image.Image, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("combiner: invalid size %dx%d", width, height)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return r.UploadTexture(dst.Pix, width, height)
}
