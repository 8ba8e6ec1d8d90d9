package hasher

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

var errEmptyInput = errors.New("empty input")

type md5Hasher struct{}

func (md5Hasher) Calculate(data []byte) (string, bool) {
	if len(data) == 0 {
		warnFailure(types.AlgorithmMD5, 0, errEmptyInput)
		return "", false
	}
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:]), true
}

func (md5Hasher) Algorithm() types.HashAlgorithm { return types.AlgorithmMD5 }

type sha256Hasher struct{}

func (sha256Hasher) Calculate(data []byte) (string, bool) {
	if len(data) == 0 {
		warnFailure(types.AlgorithmSHA256, 0, errEmptyInput)
		return "", false
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), true
}

func (sha256Hasher) Algorithm() types.HashAlgorithm { return types.AlgorithmSHA256 }
