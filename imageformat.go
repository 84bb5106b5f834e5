package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageFormat identifies the true format of an image buffer, as detected
// from its content rather than any declared MIME type.
type ImageFormat string

const (
	FormatJPEG    ImageFormat = "jpeg"
	FormatPNG     ImageFormat = "png"
	FormatGIF     ImageFormat = "gif"
	FormatWebP    ImageFormat = "webp"
	FormatHEIC    ImageFormat = "heic"
	FormatBMP     ImageFormat = "bmp"
	FormatTIFF    ImageFormat = "tiff"
	FormatICO     ImageFormat = "ico"
	FormatUnknown ImageFormat = "unknown"
)

// Extension returns the filename extension for the format.
func (f ImageFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return "jpg"
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	case FormatWebP:
		return "webp"
	case FormatHEIC:
		return "heic"
	case FormatBMP:
		return "bmp"
	case FormatTIFF:
		return "tiff"
	case FormatICO:
		return "ico"
	default:
		return "bin"
	}
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

// detectImageFormat inspects magic bytes to identify the real image format.
// The declared MIME type is deliberately ignored: Apple Notes frequently
// labels HEIC payloads as JPEG and vice versa.
func detectImageFormat(data []byte) ImageFormat {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case bytes.HasPrefix(data, pngSignature):
		return FormatPNG
	case bytes.HasPrefix(data, []byte("GIF8")):
		return FormatGIF
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP
	case isHEIC(data):
		return FormatHEIC
	case bytes.HasPrefix(data, []byte("BM")):
		return FormatBMP
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return FormatTIFF
	case bytes.HasPrefix(data, []byte{0x00, 0x00, 0x01, 0x00}):
		return FormatICO
	default:
		return FormatUnknown
	}
}

var heicBrands = map[string]bool{
	"heic": true, "heix": true, "heim": true, "heis": true,
	"hevc": true, "hevx": true, "hevm": true, "hevs": true,
	"heif": true, "mif1": true, "msf1": true,
}

// isHEIC scans the leading ftyp box for HEIC/HEIF brand tags. Both the major
// brand and the compatible-brand list are checked.
func isHEIC(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	if heicBrands[string(data[8:12])] {
		return true
	}

	boxSize := int(binary.BigEndian.Uint32(data[0:4]))
	if boxSize > len(data) {
		boxSize = len(data)
	}
	for off := 16; off+4 <= boxSize; off += 4 {
		if heicBrands[string(data[off:off+4])] {
			return true
		}
	}
	return false
}

// convertImage decodes an image buffer and re-encodes it in the target
// format, returning the encoded bytes and the extension actually used.
// JPEG output flattens any transparency onto a white background; PNG
// preserves it. Target formats without an encoder fall back to JPEG.
func convertImage(data []byte, targetFormat string, quality int) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}

	var buf bytes.Buffer
	switch targetFormat {
	case "png":
		if err := png.Encode(&buf, src); err != nil {
			return nil, "", fmt.Errorf("encoding PNG: %w", err)
		}
		return buf.Bytes(), "png", nil
	case "gif":
		if err := gif.Encode(&buf, src, nil); err != nil {
			return nil, "", fmt.Errorf("encoding GIF: %w", err)
		}
		return buf.Bytes(), "gif", nil
	default:
		// JPEG, and the fallback for targets without an encoder (webp).
		if err := jpeg.Encode(&buf, flattenOntoWhite(src), &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("encoding JPEG: %w", err)
		}
		return buf.Bytes(), "jpg", nil
	}
}

// flattenOntoWhite composites an image over a white background, dropping
// any alpha channel. JPEG has no transparency support.
func flattenOntoWhite(src image.Image) image.Image {
	bounds := src.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, bounds, src, bounds.Min, draw.Over)
	return flat
}
