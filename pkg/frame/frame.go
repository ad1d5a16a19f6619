// Package frame defines the pixel buffers that flow through the capture
// pipeline and the conversion from device-native layouts to RGBA.
package frame

import (
	"fmt"
	"image"
)

// Layout is the channel layout reported by a capture device.
type Layout int

const (
	// LayoutUnknown is the zero value and is rejected by Convert.
	LayoutUnknown Layout = iota
	// LayoutBGR is packed 3-channel color in blue, green, red order.
	// This is what OpenCV and most camera drivers deliver.
	LayoutBGR
	// LayoutRGB is packed 3-channel color in display order.
	LayoutRGB
	// LayoutBGRA is 4-channel BGR with a trailing pad or alpha byte (BGRx).
	LayoutBGRA
	// LayoutRGBA is 4-channel color with straight alpha.
	LayoutRGBA
	// LayoutGray is single-channel luminance.
	LayoutGray
)

// Channels returns the number of bytes per pixel, or 0 for unknown layouts.
func (l Layout) Channels() int {
	switch l {
	case LayoutGray:
		return 1
	case LayoutBGR, LayoutRGB:
		return 3
	case LayoutBGRA, LayoutRGBA:
		return 4
	default:
		return 0
	}
}

// String returns the conventional name of the layout.
func (l Layout) String() string {
	switch l {
	case LayoutBGR:
		return "BGR"
	case LayoutRGB:
		return "RGB"
	case LayoutBGRA:
		return "BGRA"
	case LayoutRGBA:
		return "RGBA"
	case LayoutGray:
		return "GRAY"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Raw is an unconverted pixel buffer as delivered by a device.
// The reader owns Data after a successful read.
type Raw struct {
	Width  int
	Height int
	Layout Layout
	Data   []byte
}

// BytesPerPixel is the size of one pixel in a Converted frame.
const BytesPerPixel = 4

// Converted is an RGBA pixel buffer ready for texture upload.
// Alpha is straight (non-premultiplied). len(Pix) == Width*Height*4.
type Converted struct {
	Width  int
	Height int
	Pix    []byte

	// Seq is assigned by the publisher and increases with every
	// published frame.
	Seq uint64
}

// Valid reports whether the buffer size matches the frame geometry.
func (c Converted) Valid() bool {
	if c.Width <= 0 || c.Height <= 0 {
		return false
	}
	pixels := len(c.Pix) / BytesPerPixel
	return c.Width <= pixels/c.Height && len(c.Pix) == c.Width*c.Height*BytesPerPixel
}

// Stride returns the number of bytes per row.
func (c Converted) Stride() int {
	return c.Width * BytesPerPixel
}

// Image wraps the frame buffer as an *image.RGBA without copying.
// image.RGBA nominally holds premultiplied colors; every layout except
// RGBA produces opaque pixels, for which the two are identical.
func (c Converted) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    c.Pix,
		Stride: c.Stride(),
		Rect:   image.Rect(0, 0, c.Width, c.Height),
	}
}
