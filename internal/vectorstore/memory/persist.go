package memory

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// File layout, all integers little-endian:
//
//	0..7   magic "NRAGVS01"
//	8..15  count (uint64)
//	then count records of
//	  text length (uint64), UTF-8 text bytes,
//	  dim (uint64), dim IEEE 754 float64 values.
var fileMagic = [8]byte{'N', 'R', 'A', 'G', 'V', 'S', '0', '1'}

var (
	// ErrBadMagic means the file is not a vector store cache.
	ErrBadMagic = errors.New("vector store cache: invalid header")
	// ErrTruncated means the file ended before all records were read.
	ErrTruncated = errors.New("vector store cache: truncated")
)

// Save writes the store to path. The data goes to a temporary file in the
// same directory first and is renamed into place.
func (s *Store) Save(path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	var buf [8]byte
	putUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = w.Write(buf[:])
	}

	_, _ = w.Write(fileMagic[:])
	putUint(uint64(len(s.chunks)))
	for i, text := range s.chunks {
		putUint(uint64(len(text)))
		_, _ = w.WriteString(text)
		emb := s.embeddings[i]
		putUint(uint64(len(emb)))
		for _, f := range emb {
			putUint(math.Float64bits(f))
		}
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Load reads a store previously written by Save.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < len(fileMagic) || [8]byte(data[:8]) != fileMagic {
		return nil, ErrBadMagic
	}
	r := reader{buf: data[8:]}
	count, ok := r.uint()
	if !ok {
		return nil, ErrTruncated
	}
	// Every record needs at least 16 bytes, which bounds a corrupt count.
	if count > uint64(len(r.buf))/16 {
		return nil, ErrTruncated
	}

	s := &Store{
		chunks:     make([]string, 0, count),
		embeddings: make([][]float64, 0, count),
	}
	for i := uint64(0); i < count; i++ {
		n, ok := r.uint()
		if !ok {
			return nil, ErrTruncated
		}
		text, ok := r.bytes(n)
		if !ok {
			return nil, ErrTruncated
		}
		dim, ok := r.uint()
		if !ok || dim > uint64(len(r.buf))/8 {
			return nil, ErrTruncated
		}
		emb := make([]float64, dim)
		for j := range emb {
			bits, _ := r.uint()
			emb[j] = math.Float64frombits(bits)
		}
		s.chunks = append(s.chunks, string(text))
		s.embeddings = append(s.embeddings, emb)
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("vector store cache: %d trailing bytes", len(r.buf))
	}
	return s, nil
}

type reader struct {
	buf []byte
}

func (r *reader) uint() (uint64, bool) {
	if len(r.buf) < 8 {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(r.buf)
	r.buf = r.buf[8:]
	return v, true
}

func (r *reader) bytes(n uint64) ([]byte, bool) {
	if n > uint64(len(r.buf)) {
		return nil, false
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b, true
}
