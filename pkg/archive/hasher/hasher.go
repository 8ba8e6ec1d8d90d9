// Package hasher turns image bytes into fixed-length hex digests used for
// duplicate detection.
//
// Cryptographic digests (MD5, SHA-256) match only byte-identical files.
// Perceptual hashes (average, difference) match images whose pixels look the
// same after re-encoding, and need the bytes to decode as an image.
package hasher

import (
	"fmt"

	"github.com/jamesainslie/stripvault/pkg/archive/logging"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// Hasher computes a digest for image bytes.
type Hasher interface {
	// Calculate returns the hex digest of data. The second result is false
	// when data is empty or cannot be hashed; that is never an error.
	Calculate(data []byte) (string, bool)

	// Algorithm identifies the digest Calculate produces.
	Algorithm() types.HashAlgorithm
}

// New returns the Hasher for alg.
func New(alg types.HashAlgorithm) (Hasher, error) {
	switch alg {
	case types.AlgorithmMD5:
		return md5Hasher{}, nil
	case types.AlgorithmSHA256:
		return sha256Hasher{}, nil
	case types.AlgorithmAverageHash:
		return averageHasher{}, nil
	case types.AlgorithmDifferenceHash:
		return differenceHasher{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownAlgorithm, int(alg))
	}
}

// FromConfig parses a configured algorithm name and returns its Hasher.
// An empty name selects md5; an unrecognized one is an error.
func FromConfig(name string) (Hasher, error) {
	alg, err := types.ParseHashAlgorithm(name)
	if err != nil {
		return nil, err
	}
	if alg == types.AlgorithmUnknown {
		alg = types.AlgorithmMD5
	}
	return New(alg)
}

func warnFailure(alg types.HashAlgorithm, size int, err error) {
	logging.Get("hasher").Warn("hash calculation failed", "algorithm", alg.String(), "bytes", size, "error", err)
}
