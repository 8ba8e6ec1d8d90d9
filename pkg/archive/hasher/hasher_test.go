package hasher

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/corona10/goimagehash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

var blackWhite = color.Palette{color.Black, color.White}

// splitImage returns a two-tone image, black on the left half when vertical
// is true and black on the top half otherwise.
func splitImage(vertical bool) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, 64, 64), blackWhite)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			black := (vertical && x < 32) || (!vertical && y < 32)
			if black {
				img.SetColorIndex(x, y, 0)
			} else {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeGIF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func allAlgorithms() []types.HashAlgorithm {
	return []types.HashAlgorithm{
		types.AlgorithmMD5,
		types.AlgorithmSHA256,
		types.AlgorithmAverageHash,
		types.AlgorithmDifferenceHash,
	}
}

func TestNew(t *testing.T) {
	for _, alg := range allAlgorithms() {
		h, err := New(alg)
		require.NoError(t, err)
		assert.Equal(t, alg, h.Algorithm())
	}

	_, err := New(types.AlgorithmUnknown)
	assert.ErrorIs(t, err, types.ErrUnknownAlgorithm)
}

func TestFromConfig(t *testing.T) {
	h, err := FromConfig("dhash")
	require.NoError(t, err)
	assert.Equal(t, types.AlgorithmDifferenceHash, h.Algorithm())

	_, err = FromConfig("crc32")
	assert.ErrorIs(t, err, types.ErrUnknownAlgorithm)

	h, err = FromConfig("")
	require.NoError(t, err)
	assert.Equal(t, types.AlgorithmMD5, h.Algorithm())
}

func TestPerceptualRecoversFromPanic(t *testing.T) {
	data := encodePNG(t, splitImage(true))
	boom := func(image.Image) (*goimagehash.ImageHash, error) {
		panic("corrupt scanline")
	}

	sum, ok := perceptual(types.AlgorithmAverageHash, data, boom)
	assert.False(t, ok)
	assert.Empty(t, sum)
}

func TestCalculateLengths(t *testing.T) {
	data := encodePNG(t, splitImage(true))
	want := map[types.HashAlgorithm]int{
		types.AlgorithmMD5:            32,
		types.AlgorithmSHA256:         64,
		types.AlgorithmAverageHash:    16,
		types.AlgorithmDifferenceHash: 16,
	}

	for alg, length := range want {
		t.Run(alg.String(), func(t *testing.T) {
			h, err := New(alg)
			require.NoError(t, err)

			sum, ok := h.Calculate(data)
			require.True(t, ok)
			assert.Len(t, sum, length)
		})
	}
}

func TestCalculateDeterministic(t *testing.T) {
	data := encodePNG(t, splitImage(false))
	for _, alg := range allAlgorithms() {
		h, _ := New(alg)
		first, ok1 := h.Calculate(data)
		second, ok2 := h.Calculate(append([]byte(nil), data...))
		assert.True(t, ok1 && ok2, alg.String())
		assert.Equal(t, first, second, alg.String())
	}
}

func TestCalculateEmptyInput(t *testing.T) {
	for _, alg := range allAlgorithms() {
		h, _ := New(alg)
		sum, ok := h.Calculate(nil)
		assert.False(t, ok, alg.String())
		assert.Empty(t, sum, alg.String())
	}
}

func TestExactMatchSensitivity(t *testing.T) {
	data := []byte("not really an image, but bytes all the same")
	changed := append([]byte(nil), data...)
	changed[3] ^= 0x01

	for _, alg := range []types.HashAlgorithm{types.AlgorithmMD5, types.AlgorithmSHA256} {
		h, _ := New(alg)
		a, _ := h.Calculate(data)
		b, _ := h.Calculate(changed)
		assert.NotEqual(t, a, b, alg.String())
	}
}

func TestPerceptualRejectsUndecodableBytes(t *testing.T) {
	for _, alg := range []types.HashAlgorithm{types.AlgorithmAverageHash, types.AlgorithmDifferenceHash} {
		h, _ := New(alg)
		sum, ok := h.Calculate([]byte("plain text is not an image"))
		assert.False(t, ok, alg.String())
		assert.Empty(t, sum)
	}
}

func TestPerceptualSurvivesReencoding(t *testing.T) {
	img := splitImage(true)
	asPNG := encodePNG(t, img)
	asGIF := encodeGIF(t, img)
	require.NotEqual(t, asPNG, asGIF)

	md5h, _ := New(types.AlgorithmMD5)
	a, _ := md5h.Calculate(asPNG)
	b, _ := md5h.Calculate(asGIF)
	assert.NotEqual(t, a, b)

	for _, alg := range []types.HashAlgorithm{types.AlgorithmAverageHash, types.AlgorithmDifferenceHash} {
		h, _ := New(alg)
		p, ok1 := h.Calculate(asPNG)
		g, ok2 := h.Calculate(asGIF)
		require.True(t, ok1 && ok2)
		assert.Equal(t, p, g, alg.String())
	}
}

func TestPerceptualDistinguishesImages(t *testing.T) {
	left := encodePNG(t, splitImage(true))
	top := encodePNG(t, splitImage(false))

	for _, alg := range []types.HashAlgorithm{types.AlgorithmAverageHash, types.AlgorithmDifferenceHash} {
		h, _ := New(alg)
		a, _ := h.Calculate(left)
		b, _ := h.Calculate(top)
		assert.NotEqual(t, a, b, alg.String())
	}
}
