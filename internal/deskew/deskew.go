// Package deskew rotates a photographed sheet so its sides become axis
// aligned.
//
// The rotation is derived from the minimum-area rectangle around the
// sheet's contour and applied to the whole, uncropped raster about the
// centre of the sheet's bounding box. The output canvas keeps the input
// size, so content rotated past the border is clipped and uncovered
// corners are black.
package deskew

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/sheet-calibration-mcp/internal/detection"
	"github.com/ironsheep/sheet-calibration-mcp/internal/imaging"
)

// Result is a deskewed raster together with the transform that produced it.
type Result struct {
	// RawAngle is the minimum-area rectangle angle, in (-90, 0].
	RawAngle float64

	// Angle is the applied rotation in degrees, in [-45, 45]. Positive
	// values turn the content counter-clockwise on screen.
	Angle float64

	// CenterX and CenterY are the rotation centre in raster coordinates.
	CenterX, CenterY float64

	// Matrix is the 2x3 affine map from source to deskewed coordinates.
	Matrix *mat.Dense

	// Raster is the deskewed image, the same size as the source.
	Raster *imaging.Raster
}

// NormalizeAngle maps a minimum-area rectangle angle to the smallest
// rotation that aligns the rectangle with the axes: angles below -45° get
// 90° added.
func NormalizeAngle(angle float64) float64 {
	if angle < -45 {
		return angle + 90
	}
	return angle
}

// RotationMatrix returns the 2x3 affine matrix rotating by angleDeg about
// (cx, cy) and scaling by scale:
//
//	[  α  β  (1-α)·cx - β·cy ]
//	[ -β  α  β·cx + (1-α)·cy ]
//
// with α = scale·cos(angle) and β = scale·sin(angle). With y pointing down,
// a positive angle turns points counter-clockwise on screen.
func RotationMatrix(cx, cy, angleDeg, scale float64) *mat.Dense {
	rad := angleDeg * math.Pi / 180
	alpha := scale * math.Cos(rad)
	beta := scale * math.Sin(rad)
	return mat.NewDense(2, 3, []float64{
		alpha, beta, (1-alpha)*cx - beta*cy,
		-beta, alpha, beta*cx + (1-alpha)*cy,
	})
}

// Deskew rotates r so the sheet described by region becomes axis aligned.
//
// The region must come from a detection pass on r. A region without a
// contour or with a zero-length side returns ErrDegenerateGeometry. When
// the rotation is zero the result holds an unmodified copy of r.
func Deskew(r *imaging.Raster, region *detection.Region) (*Result, error) {
	if region == nil || region.Degenerate() || len(region.Contour) == 0 {
		return nil, fmt.Errorf("%w: cannot deskew an empty region", detection.ErrDegenerateGeometry)
	}

	rect := detection.MinAreaRect(region.Contour)
	angle := NormalizeAngle(rect.Angle)
	cx, cy := region.Center()
	m := RotationMatrix(cx, cy, angle, 1)

	res := &Result{
		RawAngle: rect.Angle,
		Angle:    angle,
		CenterX:  cx,
		CenterY:  cy,
		Matrix:   m,
	}
	if angle == 0 {
		res.Raster = imaging.NewRaster(r.Image())
		return res, nil
	}
	res.Raster = warp(r, m)
	return res, nil
}

// ToSource maps a point of the deskewed raster back into the source raster.
func (res *Result) ToSource(x, y float64) (float64, float64, error) {
	var inv mat.Dense
	if err := inv.Inverse(homogeneous(res.Matrix)); err != nil {
		return 0, 0, fmt.Errorf("%w: rotation matrix is singular", detection.ErrDegenerateGeometry)
	}
	var p mat.VecDense
	p.MulVec(&inv, mat.NewVecDense(3, []float64{x, y, 1}))
	return p.AtVec(0), p.AtVec(1), nil
}

// warp applies m to r with bilinear interpolation onto a black canvas of
// the same size.
func warp(r *imaging.Raster, m *mat.Dense) *imaging.Raster {
	dst := image.NewRGBA(r.Bounds())
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.BiLinear.Transform(dst, pixelCentered(m), r.Image(), r.Bounds(), draw.Src, nil)
	return imaging.NewRaster(dst)
}

// pixelCentered converts m, which addresses pixels by index, into the
// continuous coordinates x/image/draw uses, where pixel (i, j) covers
// [i, i+1) × [j, j+1) and its centre is at (i+0.5, j+0.5).
func pixelCentered(m *mat.Dense) f64.Aff3 {
	shift := mat.NewDense(3, 3, []float64{1, 0, 0.5, 0, 1, 0.5, 0, 0, 1})
	unshift := mat.NewDense(3, 3, []float64{1, 0, -0.5, 0, 1, -0.5, 0, 0, 1})

	var c mat.Dense
	c.Product(shift, homogeneous(m), unshift)
	return f64.Aff3{
		c.At(0, 0), c.At(0, 1), c.At(0, 2),
		c.At(1, 0), c.At(1, 1), c.At(1, 2),
	}
}

// homogeneous extends a 2x3 affine matrix to 3x3.
func homogeneous(m *mat.Dense) *mat.Dense {
	h := mat.NewDense(3, 3, nil)
	h.Slice(0, 2, 0, 3).(*mat.Dense).Copy(m)
	h.Set(2, 2, 1)
	return h
}
