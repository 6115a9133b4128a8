package tpf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
)

// Color is an opaque RGB triple.
type Color struct {
	R, G, B uint8
}

var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}
)

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R) * 0x101
	g = uint32(c.G) * 0x101
	b = uint32(c.B) * 0x101
	return r, g, b, 0xFFFF
}

// Raster is a fixed-size grid of RGB pixels stored row-major, 3 bytes per pixel.
// It implements image.Image so it can be handed directly to image encoders.
type Raster struct {
	width  int
	height int
	pix    []byte
}

// NewRaster creates a width x height raster with every cell set to fill.
// It panics if either dimension is not positive.
func NewRaster(width, height int, fill Color) *Raster {
	if width <= 0 || height <= 0 {
		panic("tpf: non-positive raster dimensions")
	}
	r := &Raster{
		width:  width,
		height: height,
		pix:    make([]byte, width*height*3),
	}
	r.Fill(fill)
	return r
}

// Width returns the number of columns.
func (r *Raster) Width() int {
	return r.width
}

// Height returns the number of rows.
func (r *Raster) Height() int {
	return r.height
}

// Size returns width and height.
func (r *Raster) Size() (int, int) {
	return r.width, r.height
}

// In reports whether (x, y) lies inside the raster.
func (r *Raster) In(x, y int) bool {
	return x >= 0 && x < r.width && y >= 0 && y < r.height
}

// Pixel returns the color at (x, y), or ErrOutOfBounds.
func (r *Raster) Pixel(x, y int) (Color, error) {
	if !r.In(x, y) {
		return Color{}, ErrOutOfBounds
	}
	i := (y*r.width + x) * 3
	return Color{r.pix[i], r.pix[i+1], r.pix[i+2]}, nil
}

// Set writes c at (x, y). Coordinates outside the raster return
// ErrOutOfBounds and leave it untouched.
func (r *Raster) Set(x, y int, c Color) error {
	if !r.In(x, y) {
		return ErrOutOfBounds
	}
	i := (y*r.width + x) * 3
	r.pix[i] = c.R
	r.pix[i+1] = c.G
	r.pix[i+2] = c.B
	return nil
}

// Fill sets every pixel to c.
func (r *Raster) Fill(c Color) {
	fillRun(r.pix, 0, r.width*r.height, c)
}

// setRun writes n pixels of c starting at (x, y). The caller guarantees
// the whole run lies inside row y.
func (r *Raster) setRun(x, y, n int, c Color) {
	fillRun(r.pix, y*r.width+x, n, c)
}

// fillRun fills count pixels starting at pixel index pos by doubling the
// already-written prefix.
func fillRun(pix []byte, pos, count int, c Color) {
	start := pos * 3
	end := min(start+count*3, len(pix))
	if start >= end {
		return
	}
	pix[start] = c.R
	pix[start+1] = c.G
	pix[start+2] = c.B
	for filled := 3; filled < end-start; filled *= 2 {
		copy(pix[start+filled:end], pix[start:start+filled])
	}
}

// Clone returns an independent copy of r.
func (r *Raster) Clone() *Raster {
	pix := make([]byte, len(r.pix))
	copy(pix, r.pix)
	return &Raster{width: r.width, height: r.height, pix: pix}
}

// Equal reports whether both rasters have the same size and pixels.
func (r *Raster) Equal(o *Raster) bool {
	if r.width != o.width || r.height != o.height {
		return false
	}
	return bytes.Equal(r.pix, o.pix)
}

// ColorModel implements image.Image.
func (r *Raster) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// At implements image.Image. Points outside the raster are transparent.
func (r *Raster) At(x, y int) color.Color {
	c, err := r.Pixel(x, y)
	if err != nil {
		return color.RGBA{}
	}
	return c
}

// Opaque reports that every pixel is fully opaque, which lets encoders
// drop the alpha channel.
func (r *Raster) Opaque() bool {
	return true
}

// FromImage converts img to a raster. Translucent pixels are composited
// over background; fully transparent ones become background.
func FromImage(img image.Image, background Color) (*Raster, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("tpf: empty image bounds %v", bounds)
	}
	r := NewRaster(bounds.Dx(), bounds.Dy(), background)

	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < r.height; y++ {
			for x := 0; x < r.width; x++ {
				off := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				sa := uint32(src.Pix[off+3])
				if sa == 0 {
					continue
				}
				d := (y*r.width + x) * 3
				if sa == 255 {
					r.pix[d] = src.Pix[off]
					r.pix[d+1] = src.Pix[off+1]
					r.pix[d+2] = src.Pix[off+2]
					continue
				}
				da := 255 - sa
				r.pix[d] = byte((uint32(src.Pix[off])*sa + uint32(r.pix[d])*da) / 255)
				r.pix[d+1] = byte((uint32(src.Pix[off+1])*sa + uint32(r.pix[d+1])*da) / 255)
				r.pix[d+2] = byte((uint32(src.Pix[off+2])*sa + uint32(r.pix[d+2])*da) / 255)
			}
		}
		return r, nil
	}

	for y := 0; y < r.height; y++ {
		for x := 0; x < r.width; x++ {
			// RGBA() is alpha-premultiplied.
			cr, cg, cb, ca := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if ca == 0 {
				continue
			}
			d := (y*r.width + x) * 3
			if ca == 0xFFFF {
				r.pix[d] = byte(cr >> 8)
				r.pix[d+1] = byte(cg >> 8)
				r.pix[d+2] = byte(cb >> 8)
				continue
			}
			da := 255 - ca>>8
			r.pix[d] = byte(cr>>8 + uint32(r.pix[d])*da/255)
			r.pix[d+1] = byte(cg>>8 + uint32(r.pix[d+1])*da/255)
			r.pix[d+2] = byte(cb>>8 + uint32(r.pix[d+2])*da/255)
		}
	}
	return r, nil
}
