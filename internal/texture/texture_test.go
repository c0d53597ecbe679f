package texture

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMipLevels(t *testing.T) {
	for _, tc := range []struct {
		width, height int
		levels        int
	}{
		{1, 1, 1},
		{2, 1, 2},
		{3, 3, 2},
		{4, 4, 3},
		{512, 256, 10},
		{256, 512, 10},
		{1024, 1024, 11},
		{1023, 7, 10},
		{4096, 1, 13},
		{0, 0, 1},
	} {
		require.Equal(t, tc.levels, MipLevels(tc.width, tc.height), "%dx%d", tc.width, tc.height)
	}
}

func TestFromImageConvertsToRGBA(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(1, 0, color.Gray{Y: 200})

	p := FromImage(img)
	require.Equal(t, 2, p.Width)
	require.Equal(t, 2, p.Height)
	require.Equal(t, 16, p.Size())
	require.Equal(t, []byte{0, 0, 0, 255, 200, 200, 200, 255}, p.Data[:8])
}

func TestFromImageHonoursOffsetBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(2, 2, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

	p := FromImage(img.SubImage(image.Rect(2, 2, 4, 4)))
	require.Equal(t, 2, p.Width)
	require.Equal(t, 2, p.Height)
	require.Len(t, p.Data, 16)
	require.Equal(t, []byte{1, 2, 3, 4}, p.Data[:4])
}

func TestLoadFile(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 512, 256))
	path := filepath.Join(t.TempDir(), "tex.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	p, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 512*256*4, p.Size())
	require.Equal(t, 10, p.MipLevels())
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadFile(filepath.Join(dir, "missing.png"))
	require.ErrorIs(t, err, os.ErrNotExist)

	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, err = LoadFile(garbage)
	require.Error(t, err)
}
