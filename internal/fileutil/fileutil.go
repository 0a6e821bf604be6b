package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrVerification marks a copy whose size or content hash did not match the source.
var ErrVerification = errors.New("copy verification failed")

// CopyFileVerified streams src to a new file at dst with SHA256 + size integrity
// verification. dst must not exist; the source permission bits are carried over
// and the data is synced before returning. Removes dst on any failure after it
// was created and returns the number of bytes written.
func CopyFileVerified(src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return 0, err
	}
	written, err := copyAndVerify(in, out, srcSize)
	if err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return written, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return written, err
	}
	return written, nil
}

func copyAndVerify(in io.Reader, out *os.File, srcSize int64) (int64, error) {
	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return written, err
	}
	if err := out.Sync(); err != nil {
		return written, err
	}
	if written != srcSize {
		return written, fmt.Errorf("%w: source %d bytes, copied %d bytes", ErrVerification, srcSize, written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return written, fmt.Errorf("%w: file corrupted during copy", ErrVerification)
	}
	return written, nil
}
