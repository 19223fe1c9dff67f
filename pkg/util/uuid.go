package util

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
)

// Md5ThenHex is a quick hasher
func Md5ThenHex(value []byte) string {
	hasher := md5.New()
	hasher.Write(value)
	return hex.EncodeToString(hasher.Sum(nil))
}

// HashUUID fingerprints the JSON form of value, "" if it cannot be marshalled.
func HashUUID(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	hash := md5.Sum(raw)
	id, err := uuid.FromBytes(hash[:])
	if err != nil {
		return ""
	}
	return id.String()
}

// SamplesUUID is a name based (SHA-1) UUID of decoded samples. Equal
// samples give equal ids whatever codestream they came from, so a lossless
// round trip keeps the id.
func SamplesUUID(samples []uint16) string {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.BigEndian.PutUint16(buf[2*i:], s)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, buf).String()
}
