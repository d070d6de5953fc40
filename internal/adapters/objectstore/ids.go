package objectstore

import (
	"crypto/sha256"
	"encoding/hex"
)

// ID is the content-addressed identity of a blob, tree, or commit object:
// the hex-encoded SHA-256 of its canonical encoding, prefixed with a
// one-byte type tag so a blob and a tree can never collide even if their
// encoded bytes happened to coincide.
type ID string

const (
	tagBlob   byte = 'b'
	tagTree   byte = 't'
	tagCommit byte = 'c'
)

func hashID(tag byte, data []byte) ID {
	h := sha256.New()
	h.Write([]byte{tag})
	h.Write(data)

	return ID(hex.EncodeToString(h.Sum(nil)))
}

// Empty reports whether id is the zero value, used to represent "no
// parent" on the repository's init commit.
func (id ID) Empty() bool { return id == "" }
