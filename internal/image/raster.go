// Package image loads and saves the rasters the warp tools work on.
package image

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"

	"github.com/spakin/netpbm"
	_ "golang.org/x/image/tiff"
)

// Raster is a decoded image file.
type Raster struct {
	Path   string
	Image  image.Image
	Format string  // decoder name: png, jpeg, tiff, pgm, ...
	DPI    float64 // from TIFF resolution tags, 0 when unknown
}

// Load decodes the image at path.
func Load(path string) (*Raster, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	r := &Raster{Path: path, Image: img, Format: format}

	if format == "tiff" {
		if _, err := file.Seek(0, io.SeekStart); err == nil {
			if dpi, err := tiffDPI(file); err == nil {
				r.DPI = dpi
			}
		}
	}
	return r, nil
}

// Width returns the image width in pixels.
func (r *Raster) Width() int {
	return r.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (r *Raster) Height() int {
	return r.Image.Bounds().Dy()
}

// Save encodes img by the extension of path: .pgm/.pnm as binary PGM,
// anything else as PNG.
func Save(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(file)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pgm", ".pnm":
		maxValue := uint16(255)
		if _, ok := img.(*image.Gray16); ok {
			maxValue = 65535
		}
		err = netpbm.Encode(w, img, &netpbm.EncodeOptions{
			Format:   netpbm.PGM,
			MaxValue: maxValue,
			Comments: []string{"written by tiepoint"},
		})
	default:
		err = png.Encode(w, img)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SupportedFormats returns the file extensions Load understands.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg", ".pgm", ".ppm", ".pbm", ".pnm", ".pam"}
}

// IsSupportedFormat checks the extension of path against SupportedFormats.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

const (
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	typeShort    = 3
	typeRational = 5

	unitCentimetre = 3
)

// tiffDPI reads the resolution tags of the first IFD.
func tiffDPI(rs io.ReadSeeker) (float64, error) {
	var header [8]byte
	if _, err := io.ReadFull(rs, header[:]); err != nil {
		return 0, err
	}
	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, fmt.Errorf("not a TIFF file")
	}

	if _, err := rs.Seek(int64(order.Uint32(header[4:8])), io.SeekStart); err != nil {
		return 0, err
	}
	var count uint16
	if err := binary.Read(rs, order, &count); err != nil {
		return 0, err
	}

	type rational struct{ off int64 }
	var xRes, yRes *rational
	unit := uint16(2)
	entry := make([]byte, 12)
	for i := uint16(0); i < count; i++ {
		if _, err := io.ReadFull(rs, entry); err != nil {
			return 0, err
		}
		tag, typ := order.Uint16(entry[0:2]), order.Uint16(entry[2:4])
		switch {
		case tag == tagXResolution && typ == typeRational:
			xRes = &rational{int64(order.Uint32(entry[8:12]))}
		case tag == tagYResolution && typ == typeRational:
			yRes = &rational{int64(order.Uint32(entry[8:12]))}
		case tag == tagResolutionUnit && typ == typeShort:
			unit = order.Uint16(entry[8:10])
		}
	}

	read := func(r *rational) float64 {
		if r == nil {
			return 0
		}
		if _, err := rs.Seek(r.off, io.SeekStart); err != nil {
			return 0
		}
		var v [2]uint32
		if err := binary.Read(rs, order, &v); err != nil || v[1] == 0 {
			return 0
		}
		return float64(v[0]) / float64(v[1])
	}
	dpi := read(xRes)
	if dpi == 0 {
		dpi = read(yRes)
	}
	if dpi == 0 {
		return 0, fmt.Errorf("no resolution tags")
	}
	if unit == unitCentimetre {
		dpi *= 2.54
	}
	return dpi, nil
}
