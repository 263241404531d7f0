package dedup

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// sampleChunk is how much of the head and tail is hashed for files above the
// size ceiling. 256 KiB from each end catches headers, trailers and embedded
// indexes, which is where same-size files differ in practice; a sampled match
// is never trusted without full byte verification anyway.
const sampleChunk = 256 * 1024

// hashFile computes the content hash of a file. Files at or below ceiling are
// hashed in full; larger files get a head+tail sample with the length mixed
// in. The sampled return reports which kind was produced, because sampled
// hashes must always be verified byte-for-byte before two files are treated
// as identical.
func hashFile(path string, size, ceiling int64) (sum uint64, sampled bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()

	if ceiling <= 0 || size <= ceiling {
		if _, err := io.Copy(h, f); err != nil {
			return 0, false, fmt.Errorf("failed to hash %s: %w", path, err)
		}
		return h.Sum64(), false, nil
	}

	var lenBuf [8]byte
	binary.LittleEndian.PutUint64(lenBuf[:], uint64(size))
	h.Write(lenBuf[:])

	if _, err := io.CopyN(h, f, sampleChunk); err != nil {
		return 0, false, fmt.Errorf("failed to hash head of %s: %w", path, err)
	}
	if _, err := f.Seek(-sampleChunk, io.SeekEnd); err != nil {
		return 0, false, fmt.Errorf("failed to seek tail of %s: %w", path, err)
	}
	if _, err := io.CopyN(h, f, sampleChunk); err != nil && err != io.EOF {
		return 0, false, fmt.Errorf("failed to hash tail of %s: %w", path, err)
	}
	return h.Sum64(), true, nil
}

// sameContent compares two files byte for byte. Any read error counts as a
// mismatch: when in doubt, the file is not a duplicate and is kept.
func sameContent(a, b string) bool {
	fa, err := os.Open(a)
	if err != nil {
		return false
	}
	defer fa.Close()
	fb, err := os.Open(b)
	if err != nil {
		return false
	}
	defer fb.Close()

	bufA := make([]byte, 64*1024)
	bufB := make([]byte, 64*1024)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false
		}
		if errA == io.EOF || errA == io.ErrUnexpectedEOF {
			return errB == io.EOF || errB == io.ErrUnexpectedEOF
		}
		if errA != nil || errB != nil {
			return false
		}
	}
}
