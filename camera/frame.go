package camera

import (
	"image"
	"image/color"

	"github.com/disintegration/gift"
)

// Frame is a grayscale image of non-negative intensities stored row major.
type Frame struct {
	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int

	// Data holds Width*Height samples, row after row
	Data []float64
}

// NewFrame returns a zero filled frame of the given size
func NewFrame(width, height int) Frame {
	return Frame{Width: width, Height: height, Data: make([]float64, width*height)}
}

// Valid is true if the frame is non-empty and its buffer matches its shape
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Data) == f.Width*f.Height
}

// At returns the sample at (row, col)
func (f Frame) At(row, col int) float64 {
	return f.Data[row*f.Width+col]
}

// Set writes the sample at (row, col)
func (f Frame) Set(row, col int, v float64) {
	f.Data[row*f.Width+col] = v
}

// Row returns a view of one row of the frame
func (f Frame) Row(row int) []float64 {
	return f.Data[row*f.Width : (row+1)*f.Width]
}

// Clone returns a deep copy of the frame
func (f Frame) Clone() Frame {
	out := Frame{Width: f.Width, Height: f.Height, Data: make([]float64, len(f.Data))}
	copy(out.Data, f.Data)
	return out
}

// Gray16 converts the frame to a 16-bit image, clipping to [0, 65535]
func (f Frame) Gray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	for row := 0; row < f.Height; row++ {
		for col := 0; col < f.Width; col++ {
			v := f.At(row, col)
			switch {
			case v < 0:
				v = 0
			case v > 65535:
				v = 65535
			}
			img.SetGray16(col, row, color.Gray16{Y: uint16(v + 0.5)})
		}
	}
	return img
}

// FromImage converts an image to a frame.  8-bit sources keep their 0-255 scale
// and 16-bit sources their 0-65535 scale; colour sources are reduced to luminance.
func FromImage(img image.Image) Frame {
	b := img.Bounds()
	switch im := img.(type) {
	case *image.Gray:
		f := NewFrame(b.Dx(), b.Dy())
		for row := 0; row < f.Height; row++ {
			for col := 0; col < f.Width; col++ {
				f.Set(row, col, float64(im.GrayAt(b.Min.X+col, b.Min.Y+row).Y))
			}
		}
		return f
	case *image.Gray16:
		f := NewFrame(b.Dx(), b.Dy())
		for row := 0; row < f.Height; row++ {
			for col := 0; col < f.Width; col++ {
				f.Set(row, col, float64(im.Gray16At(b.Min.X+col, b.Min.Y+row).Y))
			}
		}
		return f
	case *image.RGBA64, *image.NRGBA64:
		g := gift.New(gift.Grayscale())
		dst := image.NewGray16(g.Bounds(b))
		g.Draw(dst, img)
		return FromImage(dst)
	default:
		g := gift.New(gift.Grayscale())
		dst := image.NewGray(g.Bounds(b))
		g.Draw(dst, img)
		return FromImage(dst)
	}
}
