package frame

import (
	"errors"
	"fmt"
)

// ErrConversion matches every *ConversionError via errors.Is.
var ErrConversion = errors.New("frame: conversion failed")

// ConversionError reports a raw frame whose geometry or layout cannot be
// converted. The frame should be skipped; it is never fatal.
type ConversionError struct {
	Width  int
	Height int
	Layout Layout
	Length int
	Reason string
}

// Error implements the error interface.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("frame: cannot convert %dx%d %s (%d bytes): %s",
		e.Width, e.Height, e.Layout, e.Length, e.Reason)
}

// Is reports whether target is ErrConversion.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

// Convert normalizes a raw frame into a freshly allocated RGBA buffer.
//
// 3-channel BGR input is byte-reversed and given an opaque alpha, so the
// source pixel [B,G,R] becomes [R,G,B,255]. The fourth byte of BGRA input
// is treated as padding and also replaced by 255.
func Convert(raw Raw) (Converted, error) {
	stride := raw.Layout.Channels()
	if stride == 0 {
		return Converted{}, newConversionError(raw, "unknown channel layout")
	}
	if len(raw.Data)%stride != 0 {
		return Converted{}, newConversionError(raw,
			fmt.Sprintf("length is not a multiple of %d", stride))
	}
	if raw.Width <= 0 || raw.Height <= 0 {
		return Converted{}, newConversionError(raw, "non-positive dimensions")
	}
	// Bound by the buffer before multiplying so huge dimensions cannot wrap.
	pixels := len(raw.Data) / stride
	if raw.Width > pixels/raw.Height || raw.Width*raw.Height != pixels {
		return Converted{}, newConversionError(raw,
			fmt.Sprintf("%d bytes do not hold %dx%d pixels", len(raw.Data), raw.Width, raw.Height))
	}

	dst := make([]byte, pixels*BytesPerPixel)
	src := raw.Data

	switch raw.Layout {
	case LayoutBGR:
		for s, d := 0, 0; s < len(src); s, d = s+3, d+4 {
			dst[d] = src[s+2]
			dst[d+1] = src[s+1]
			dst[d+2] = src[s]
			dst[d+3] = 0xFF
		}
	case LayoutRGB:
		for s, d := 0, 0; s < len(src); s, d = s+3, d+4 {
			dst[d] = src[s]
			dst[d+1] = src[s+1]
			dst[d+2] = src[s+2]
			dst[d+3] = 0xFF
		}
	case LayoutBGRA:
		for i := 0; i < len(src); i += 4 {
			dst[i] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i]
			dst[i+3] = 0xFF
		}
	case LayoutRGBA:
		copy(dst, src)
	case LayoutGray:
		for s, d := 0, 0; s < len(src); s, d = s+1, d+4 {
			y := src[s]
			dst[d] = y
			dst[d+1] = y
			dst[d+2] = y
			dst[d+3] = 0xFF
		}
	}

	return Converted{
		Width:  raw.Width,
		Height: raw.Height,
		Pix:    dst,
	}, nil
}

func newConversionError(raw Raw, reason string) *ConversionError {
	return &ConversionError{
		Width:  raw.Width,
		Height: raw.Height,
		Layout: raw.Layout,
		Length: len(raw.Data),
		Reason: reason,
	}
}
