package hashstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// Key layout:
//
//	h:<comicID>\x00<year>\x00<hash>  -> JSON HashRecord
//	m:__schema__                     -> JSON Schema
const (
	hashPrefix   = "h:"
	keySeparator = "\x00"
)

// ErrInvalidKey is returned when a key does not follow the hash key layout.
var ErrInvalidKey = errors.New("invalid hash key")

// MakeKey returns the key of one hash record.
func MakeKey(comicID, year int, hash string) []byte {
	return append(MakeKeyPrefix(comicID, year), hash...)
}

// MakeKeyPrefix returns the prefix shared by every record of a (comic, year).
func MakeKeyPrefix(comicID, year int) []byte {
	return []byte(hashPrefix + strconv.Itoa(comicID) + keySeparator + strconv.Itoa(year) + keySeparator)
}

// MakeComicPrefix returns the prefix shared by every record of a comic.
func MakeComicPrefix(comicID int) []byte {
	return []byte(hashPrefix + strconv.Itoa(comicID) + keySeparator)
}

// ParseKey splits a hash key into its comic ID, year, and hash.
func ParseKey(key []byte) (comicID, year int, hash string, err error) {
	if !bytes.HasPrefix(key, []byte(hashPrefix)) {
		return 0, 0, "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	parts := bytes.SplitN(key[len(hashPrefix):], []byte(keySeparator), 3)
	if len(parts) != 3 {
		return 0, 0, "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if comicID, err = strconv.Atoi(string(parts[0])); err != nil {
		return 0, 0, "", fmt.Errorf("%w: comic id %q", ErrInvalidKey, parts[0])
	}
	if year, err = strconv.Atoi(string(parts[1])); err != nil {
		return 0, 0, "", fmt.Errorf("%w: year %q", ErrInvalidKey, parts[1])
	}
	return comicID, year, string(parts[2]), nil
}

func encodeRecord(rec types.HashRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func decodeRecord(val []byte) (types.HashRecord, error) {
	var rec types.HashRecord
	err := json.Unmarshal(val, &rec)
	return rec, err
}
