// Package preprocess turns uploaded image bytes into the input tensor a
// model declares. The layout is chosen once from the model input shape.
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

var (
	ErrUnsupportedShape = errors.New("unsupported model input shape")
	ErrDecode           = errors.New("cannot decode image")
	ErrShapeMismatch    = errors.New("image does not fit model input")
)

// Mode names the tensor layout a Strategy produces.
type Mode string

const (
	ModeFlatten Mode = "flatten"
	ModeGrid    Mode = "grid"
)

// channels is the fixed channel count of every decoded image.
const channels = 3

// Strategy is either Flatten or Grid.
type Strategy interface {
	Mode() Mode
	// Shape is the input tensor shape with an explicit batch of 1.
	Shape() []int64
	Tensor(img *image.NRGBA) ([]float32, error)

	strategy()
}

// Flatten feeds the image as a single row of Features values.
type Flatten struct {
	Features int
}

// Grid resizes the image to Height x Width and keeps the channel axis (NHWC).
type Grid struct {
	Height   int
	Width    int
	Channels int
}

// Derive picks the strategy for a model input shape that includes the
// leading batch dimension. Rank 2 is (batch, features), rank 4 is
// (batch, height, width, channels).
func Derive(shape []int64) (Strategy, error) {
	switch len(shape) {
	case 2:
		if shape[1] <= 0 {
			return nil, fmt.Errorf("%w: %v: feature count must be fixed", ErrUnsupportedShape, shape)
		}
		return Flatten{Features: int(shape[1])}, nil
	case 4:
		for _, dim := range shape[1:] {
			if dim <= 0 {
				return nil, fmt.Errorf("%w: %v: height, width and channels must be fixed", ErrUnsupportedShape, shape)
			}
		}
		return Grid{Height: int(shape[1]), Width: int(shape[2]), Channels: int(shape[3])}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedShape, shape)
	}
}

func (Flatten) Mode() Mode { return ModeFlatten }

func (f Flatten) Shape() []int64 { return []int64{1, int64(f.Features)} }

func (f Flatten) Tensor(img *image.NRGBA) ([]float32, error) {
	b := img.Bounds()
	if n := b.Dx() * b.Dy() * channels; n != f.Features {
		return nil, fmt.Errorf("%w: %dx%d image has %d values, model expects %d",
			ErrShapeMismatch, b.Dx(), b.Dy(), n, f.Features)
	}
	return normalize(img), nil
}

func (Flatten) strategy() {}

func (Grid) Mode() Mode { return ModeGrid }

func (g Grid) Shape() []int64 {
	return []int64{1, int64(g.Height), int64(g.Width), int64(g.Channels)}
}

func (g Grid) Tensor(img *image.NRGBA) ([]float32, error) {
	if g.Channels != channels {
		return nil, fmt.Errorf("%w: model expects %d channels, image has %d",
			ErrShapeMismatch, g.Channels, channels)
	}

	b := img.Bounds()
	if b.Dx() != g.Width || b.Dy() != g.Height {
		img = toNRGBA(resize.Resize(uint(g.Width), uint(g.Height), img, resize.Bicubic))
	}
	return normalize(img), nil
}

func (Grid) strategy() {}

// MaxPixels caps width*height of an upload before its pixels are decoded.
// It matches PIL's decompression bomb limit.
const MaxPixels = 89_478_485

// Decode reads any registered image format and makes it opaque, leaving the
// stored RGB values as they are. Resizing later must not see alpha.
func Decode(raw []byte) (*image.NRGBA, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d image exceeds %d pixels",
			ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	nrgba := toNRGBA(img)
	for i := 3; i < len(nrgba.Pix); i += 4 {
		nrgba.Pix[i] = 0xff
	}
	return nrgba, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Rect.Min == (image.Point{}) {
		return nrgba
	}
	return imaging.Clone(img)
}

// normalize emits row-major HxWx3 values scaled to [0, 1].
func normalize(img *image.NRGBA) []float32 {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	data := make([]float32, 0, width*height*channels)

	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+3]
			data = append(data,
				float32(px[0])/255.0,
				float32(px[1])/255.0,
				float32(px[2])/255.0,
			)
		}
	}
	return data
}
