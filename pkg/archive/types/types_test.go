package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHashAlgorithm(t *testing.T) {
	tests := []struct {
		input string
		want  HashAlgorithm
	}{
		{"MD5", AlgorithmMD5},
		{"md5", AlgorithmMD5},
		{"sha256", AlgorithmSHA256},
		{"AVERAGE_HASH", AlgorithmAverageHash},
		{"ahash", AlgorithmAverageHash},
		{"Difference_Hash", AlgorithmDifferenceHash},
		{"dhash", AlgorithmDifferenceHash},
		{"", AlgorithmUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHashAlgorithm(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseHashAlgorithm("crc32")
	assert.True(t, errors.Is(err, ErrUnknownAlgorithm))
}

func TestHashAlgorithmText(t *testing.T) {
	text, err := AlgorithmDifferenceHash.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "DIFFERENCE_HASH", string(text))

	var alg HashAlgorithm
	require.NoError(t, alg.UnmarshalText(text))
	assert.Equal(t, AlgorithmDifferenceHash, alg)

	require.NoError(t, alg.UnmarshalText(nil))
	assert.Equal(t, AlgorithmUnknown, alg)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.February, 29), d)
	assert.Equal(t, "2024-02-29", FormatDate(d))

	_, err = ParseDate("2023-02-29")
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = ParseDate("readme")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	late := time.Date(2024, time.March, 3, 23, 30, 0, 0, loc)
	assert.Equal(t, Date(2024, time.March, 3), Day(late))
}

func TestComicDirName(t *testing.T) {
	assert.Equal(t, "AdamAtHome", ComicDirName(7, "Adam At Home"))
	assert.Equal(t, "comic_7", ComicDirName(7, ""))
	assert.Equal(t, "comic_7", ComicDirName(7, "   "))
}

func TestComicIsActive(t *testing.T) {
	active, inactive := true, false

	assert.True(t, Comic{}.IsActive())
	assert.True(t, Comic{Active: &active}.IsActive())
	assert.False(t, Comic{Active: &inactive}.IsActive())
}

func TestComicPublishesOn(t *testing.T) {
	sunday := Date(2025, time.January, 5)
	monday := Date(2025, time.January, 6)

	daily := Comic{}
	assert.True(t, daily.PublishesOn(sunday))

	weekly := Comic{PublicationDays: []time.Weekday{time.Sunday}}
	assert.True(t, weekly.PublishesOn(sunday))
	assert.False(t, weekly.PublishesOn(monday))
}

func TestIsImageExt(t *testing.T) {
	for _, ext := range []string{".png", ".JPG", ".jpeg", ".gif", ".webp"} {
		assert.True(t, IsImageExt(ext), ext)
	}
	for _, ext := range []string{".txt", "", ".tiff"} {
		assert.False(t, IsImageExt(ext), ext)
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "1.0 KiB", FormatSize(1024))
	assert.Equal(t, "0 B", FormatSize(-5))
}
