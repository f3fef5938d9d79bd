// Package snapshot computes a stable fingerprint of the input relations.
// The fingerprint is the fact cache key: equal inputs give equal keys and
// any content change gives a new one.
package snapshot

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"strconv"

	"github.com/zeebo/xxh3"
)

// Hasher accumulates named sections into one 128-bit XXH3 digest. Section
// boundaries are length-framed, so moving bytes between sections changes the
// result.
type Hasher struct {
	h *xxh3.Hasher
}

// New returns an empty Hasher.
func New() *Hasher { return &Hasher{h: xxh3.New()} }

// Section starts a named section, e.g. the relation name.
func (s *Hasher) Section(name string) {
	s.frame(name)
}

// String adds a length-framed string to the current section.
func (s *Hasher) String(v string) {
	s.frame(v)
}

// CopyFrom streams r into the current section and returns the byte count.
// The count is framed after the content.
func (s *Hasher) CopyFrom(r io.Reader) (int64, error) {
	n, err := io.Copy(s.h, r)
	if err != nil {
		return n, err
	}
	s.frame(strconv.FormatInt(n, 10))
	return n, nil
}

// Sum returns the digest as 32 lowercase hex characters.
func (s *Hasher) Sum() string {
	v := s.h.Sum128()
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[0:8], v.Lo)
	binary.LittleEndian.PutUint64(b[8:16], v.Hi)
	return hex.EncodeToString(b)
}

func (s *Hasher) frame(v string) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(v)))
	_, _ = s.h.Write(n[:])
	_, _ = s.h.WriteString(v)
}
