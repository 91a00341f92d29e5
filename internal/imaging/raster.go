package imaging

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/disintegration/imaging"
)

// Raster is an immutable decoded image anchored at (0,0).
//
// Every derivative (gray, thresholded, blurred, cropped, resized) is a new
// value; the receiver is never modified. Gray, Threshold and Blur keep the
// raster's width and height.
type Raster struct {
	img *image.NRGBA
}

// NewRaster wraps img. The pixels are copied so later changes to img are
// not observed, and the bounds are moved to start at (0,0).
func NewRaster(img image.Image) *Raster {
	return &Raster{img: imaging.Clone(img)}
}

// Width returns the raster width in pixels.
func (r *Raster) Width() int { return r.img.Bounds().Dx() }

// Height returns the raster height in pixels.
func (r *Raster) Height() int { return r.img.Bounds().Dy() }

// Bounds returns the raster bounds, always anchored at (0,0).
func (r *Raster) Bounds() image.Rectangle { return r.img.Bounds() }

// Image exposes the pixels for read-only use (drawing, encoding, warping).
// Callers must not modify the returned image.
func (r *Raster) Image() image.Image { return r.img }

// Gray converts the raster to 8-bit luma using ITU-R BT.601 weights
// (0.299*R + 0.587*G + 0.114*B).
func (r *Raster) Gray() *image.Gray {
	g := imaging.Grayscale(r.img)
	return nrgbaChannelToGray(g)
}

// Threshold binarizes the luma of the raster: pixels >= level become 255
// (foreground), all others 0. The comparison runs on the BT.601 luma of
// Gray, so a pixel whose luma equals level is foreground.
func (r *Raster) Threshold(level uint8) *image.Gray {
	g := r.Gray()
	for i, v := range g.Pix {
		if v >= level {
			g.Pix[i] = 255
		} else {
			g.Pix[i] = 0
		}
	}
	return g
}

// Blur returns the Gaussian-smoothed luma of the raster. kernelSize must be
// odd; sigma is the standard deviation in pixels. Borders replicate the edge
// pixels.
func (r *Raster) Blur(kernelSize int, sigma float64) (*image.Gray, error) {
	k, err := gaussianKernel(kernelSize, sigma)
	if err != nil {
		return nil, err
	}
	out := convolution.Convolve(r.Gray(), k, &convolution.Options{Bias: 0, Wrap: false, KeepAlpha: true})
	return rgbaChannelToGray(out), nil
}

// Crop extracts rect, clipped to the raster bounds. The result is anchored
// at (0,0).
func (r *Raster) Crop(rect image.Rectangle) (*Raster, error) {
	clipped := rect.Intersect(r.Bounds())
	if clipped.Empty() {
		return nil, fmt.Errorf("crop region %v outside raster bounds %v", rect, r.Bounds())
	}
	return &Raster{img: imaging.Crop(r.img, clipped)}, nil
}

// FitWithin resizes the raster so that its governing side equals maxDim:
// the width when the raster is wider than tall, otherwise the height. The
// other side is scaled proportionally and truncated. maxDim <= 0 returns
// the receiver unchanged.
func (r *Raster) FitWithin(maxDim int) *Raster {
	if maxDim <= 0 {
		return r
	}
	w, h := r.Width(), r.Height()
	var nw, nh int
	if w > h {
		nw = maxDim
		nh = int(float64(h) * (float64(maxDim) / float64(w)))
	} else {
		nh = maxDim
		nw = int(float64(w) * (float64(maxDim) / float64(h)))
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	if nw == w && nh == h {
		return r
	}
	return &Raster{img: imaging.Resize(r.img, nw, nh, imaging.Linear)}
}

// RGBA returns a mutable copy of the raster for annotation.
func (r *Raster) RGBA() *image.RGBA {
	out := image.NewRGBA(r.Bounds())
	draw.Draw(out, out.Bounds(), r.img, image.Point{}, draw.Src)
	return out
}

// gaussianKernel samples a normalized 2D Gaussian of the given odd size.
func gaussianKernel(size int, sigma float64) (*convolution.Kernel, error) {
	if size < 1 || size%2 == 0 {
		return nil, fmt.Errorf("gaussian kernel size must be a positive odd number, got %d", size)
	}
	if sigma <= 0 {
		return nil, fmt.Errorf("gaussian sigma must be > 0, got %g", sigma)
	}

	half := size / 2
	weights := make([]float64, size)
	var sum float64
	for i := range weights {
		d := float64(i - half)
		weights[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}

	k := convolution.NewKernel(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			k.Matrix[y*size+x] = weights[y] * weights[x]
		}
	}
	return k, nil
}

// nrgbaChannelToGray keeps the red channel of an already-gray NRGBA image.
func nrgbaChannelToGray(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[y*dst.Stride+x] = src.Pix[y*src.Stride+x*4]
		}
	}
	return dst
}

// rgbaChannelToGray keeps the red channel of an already-gray RGBA image.
func rgbaChannelToGray(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[y*dst.Stride+x] = src.Pix[y*src.Stride+x*4]
		}
	}
	return dst
}
