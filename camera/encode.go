package camera

import (
	"fmt"
	"image/png"
	"io"
	"strings"

	"github.com/astrogo/fitsio"
	"golang.org/x/image/tiff"
)

// Encode writes a frame to w in the format named by ext, one of .fits, .fit,
// .fts, .tif, .tiff or .png.  TIFF and PNG frames are 16-bit grayscale
func Encode(w io.Writer, ext string, f Frame, metadata []fitsio.Card) error {
	if !f.Valid() {
		return fmt.Errorf("encode %dx%d frame with %d samples: %w", f.Width, f.Height, len(f.Data), ErrNoFrames)
	}
	switch strings.ToLower(ext) {
	case ".fits", ".fit", ".fts":
		return WriteFits(w, metadata, f)
	case ".tif", ".tiff":
		return tiff.Encode(w, f.Gray16(), &tiff.Options{Compression: tiff.Deflate})
	case ".png":
		return png.Encode(w, f.Gray16())
	}
	return fmt.Errorf("encode %q: %w", ext, ErrUnsupportedFormat)
}
