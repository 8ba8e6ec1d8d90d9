package hasher

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for the formats archived strips arrive in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
	_ "golang.org/x/image/webp"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// averageHasher: 8x8 grayscale, one bit per pixel above the mean.
type averageHasher struct{}

func (averageHasher) Calculate(data []byte) (string, bool) {
	return perceptual(types.AlgorithmAverageHash, data, goimagehash.AverageHash)
}

func (averageHasher) Algorithm() types.HashAlgorithm { return types.AlgorithmAverageHash }

// differenceHasher: 9x8 grayscale, one bit per horizontal gradient.
type differenceHasher struct{}

func (differenceHasher) Calculate(data []byte) (string, bool) {
	return perceptual(types.AlgorithmDifferenceHash, data, goimagehash.DifferenceHash)
}

func (differenceHasher) Algorithm() types.HashAlgorithm { return types.AlgorithmDifferenceHash }

func perceptual(alg types.HashAlgorithm, data []byte, fn func(image.Image) (*goimagehash.ImageHash, error)) (sum string, ok bool) {
	// Decoders can panic on crafted input.
	defer func() {
		if r := recover(); r != nil {
			warnFailure(alg, len(data), fmt.Errorf("panic: %v", r))
			sum, ok = "", false
		}
	}()

	if len(data) == 0 {
		warnFailure(alg, 0, errEmptyInput)
		return "", false
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		warnFailure(alg, len(data), fmt.Errorf("decoding image: %w", err))
		return "", false
	}

	h, err := fn(img)
	if err != nil {
		warnFailure(alg, len(data), err)
		return "", false
	}

	return fmt.Sprintf("%016x", h.GetHash()), true
}
