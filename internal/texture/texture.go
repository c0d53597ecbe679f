package texture

import (
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Pixels is a decoded texture in tightly packed RGBA8 rows.
type Pixels struct {
	Width  int
	Height int
	Data   []byte
}

func (p *Pixels) Size() int {
	return len(p.Data)
}

func (p *Pixels) MipLevels() int {
	return MipLevels(p.Width, p.Height)
}

// MipLevels is floor(log2(max(width, height))) + 1.
func MipLevels(width, height int) int {
	largest := width
	if height > largest {
		largest = height
	}
	if largest < 1 {
		return 1
	}
	return bits.Len(uint(largest))
}

func LoadFile(path string) (*Pixels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load texture")
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode texture %s", path)
	}

	pixels := FromImage(img)
	if pixels.Width == 0 || pixels.Height == 0 {
		return nil, errors.Newf("texture %s (%s) is empty", path, format)
	}
	return pixels, nil
}

func FromImage(img image.Image) *Pixels {
	bounds := img.Bounds()

	rgba, ok := img.(*image.NRGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return &Pixels{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Data:   rgba.Pix,
	}
}
