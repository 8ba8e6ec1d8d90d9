package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAlgorithm is returned when a hash algorithm name is not recognized.
var ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

// HashAlgorithm identifies the function used to hash archived images.
type HashAlgorithm int

// Supported algorithms. The zero value marks records written before
// records carried an algorithm.
const (
	AlgorithmUnknown HashAlgorithm = iota
	AlgorithmMD5
	AlgorithmSHA256
	AlgorithmAverageHash
	AlgorithmDifferenceHash
)

// String returns the configuration name of the algorithm.
func (a HashAlgorithm) String() string {
	switch a {
	case AlgorithmMD5:
		return "MD5"
	case AlgorithmSHA256:
		return "SHA256"
	case AlgorithmAverageHash:
		return "AVERAGE_HASH"
	case AlgorithmDifferenceHash:
		return "DIFFERENCE_HASH"
	default:
		return ""
	}
}

// Perceptual reports whether the algorithm hashes decoded pixels rather than bytes.
func (a HashAlgorithm) Perceptual() bool {
	return a == AlgorithmAverageHash || a == AlgorithmDifferenceHash
}

// ParseHashAlgorithm parses an algorithm name case-insensitively.
// The empty string parses as AlgorithmUnknown.
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AlgorithmUnknown, nil
	case "md5":
		return AlgorithmMD5, nil
	case "sha256", "sha-256":
		return AlgorithmSHA256, nil
	case "average_hash", "ahash", "average":
		return AlgorithmAverageHash, nil
	case "difference_hash", "dhash", "difference":
		return AlgorithmDifferenceHash, nil
	default:
		return AlgorithmUnknown, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a HashAlgorithm) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *HashAlgorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseHashAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
