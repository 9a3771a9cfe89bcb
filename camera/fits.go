package camera

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"
)

// WriteFits streams frames to w as a 16-bit FITS image, or cube if there is
// more than one frame.  Samples are clipped to [0, 65535] and stored with the
// usual BZERO=32768 offset.
func WriteFits(w io.Writer, metadata []fitsio.Card, frames ...Frame) error {
	if len(frames) == 0 {
		return fmt.Errorf("write fits: %w", ErrNoFrames)
	}
	width, height := frames[0].Width, frames[0].Height
	for _, f := range frames {
		if f.Width != width || f.Height != height || !f.Valid() {
			return fmt.Errorf("write fits: frames must share one valid shape, got %dx%d and %dx%d", width, height, f.Width, f.Height)
		}
	}
	metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{width, height}
	if len(frames) > 1 {
		dims = append(dims, len(frames))
	}
	im := fitsio.NewImage(16, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	ints := make([]int16, 0, width*height*len(frames))
	for _, f := range frames {
		for _, v := range f.Data {
			switch {
			case v < 0:
				v = 0
			case v > 65535:
				v = 65535
			}
			ints = append(ints, int16(int32(v+0.5)-32768))
		}
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

// ReadFits reads the first plane of the primary image HDU of a FITS stream,
// applying BZERO and BSCALE.
func ReadFits(r io.Reader) (Frame, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return Frame{}, err
	}
	defer f.Close()
	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return Frame{}, fmt.Errorf("read fits: primary HDU is not an image")
	}
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) < 2 {
		return Frame{}, fmt.Errorf("read fits: need at least 2 axes, got %d", len(axes))
	}
	frame := NewFrame(axes[0], axes[1])
	n := len(frame.Data)

	var raw []float64
	switch hdr.Bitpix() {
	case 8:
		var buf []byte
		err = img.Read(&buf)
		raw = widen(len(buf), func(i int) float64 { return float64(buf[i]) })
	case 16:
		var buf []int16
		err = img.Read(&buf)
		raw = widen(len(buf), func(i int) float64 { return float64(buf[i]) })
	case 32:
		var buf []int32
		err = img.Read(&buf)
		raw = widen(len(buf), func(i int) float64 { return float64(buf[i]) })
	case 64:
		var buf []int64
		err = img.Read(&buf)
		raw = widen(len(buf), func(i int) float64 { return float64(buf[i]) })
	case -32:
		var buf []float32
		err = img.Read(&buf)
		raw = widen(len(buf), func(i int) float64 { return float64(buf[i]) })
	case -64:
		err = img.Read(&raw)
	default:
		return Frame{}, fmt.Errorf("read fits: unsupported BITPIX %d", hdr.Bitpix())
	}
	if err != nil {
		return Frame{}, err
	}
	if len(raw) < n {
		return Frame{}, fmt.Errorf("read fits: short image, %d samples for %dx%d", len(raw), frame.Width, frame.Height)
	}
	zero, scale := cardFloat(hdr.Get("BZERO"), 0), cardFloat(hdr.Get("BSCALE"), 1)
	for i := 0; i < n; i++ {
		frame.Data[i] = raw[i]*scale + zero
	}
	return frame, nil
}

func widen(n int, at func(int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = at(i)
	}
	return out
}

func cardFloat(c *fitsio.Card, dflt float64) float64 {
	if c == nil {
		return dflt
	}
	switch v := c.Value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	}
	return dflt
}
