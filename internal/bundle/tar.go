package bundle

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/commonshub/commonshub-web/internal/xerrors"
)

const (
	// maxBundleSize is the maximum size of a compressed content bundle.
	maxBundleSize int64 = 50 * 1024 * 1024 // 50MB

	// maxSingleFile is the maximum size of a single file in the bundle.
	maxSingleFile int64 = 10 * 1024 * 1024 // 10MB

	// maxTotalExtract is the maximum total size of extracted content.
	maxTotalExtract int64 = 100 * 1024 * 1024 // 100MB
)

// extractTarGz extracts a .tar.gz archive into dst. Entries must be plain
// files or directories with relative, traversal-free paths.
func extractTarGz(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return xerrors.Wrapf(err, "open %s", src)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return xerrors.Wrap(err, "open gzip")
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	var totalBytes int64

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.Wrap(err, "read tar header")
		}

		target, err := sanitizeTarPath(dst, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return xerrors.Wrapf(err, "create dir %s", target)
			}

		case tar.TypeReg:
			if hdr.Size > maxSingleFile {
				return xerrors.Newf("file %s exceeds max size (%d > %d)",
					hdr.Name, hdr.Size, maxSingleFile)
			}
			totalBytes += hdr.Size
			if totalBytes > maxTotalExtract {
				return xerrors.Newf("total extracted size exceeds limit (max %d)", maxTotalExtract)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return xerrors.Wrapf(err, "create dir for %s", target)
			}
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}

		default:
			return xerrors.Newf("unsupported file type in archive: %s (type=%d)",
				hdr.Name, hdr.Typeflag)
		}
	}

	return nil
}

// sanitizeTarPath prevents directory traversal out of dst.
func sanitizeTarPath(dst, name string) (string, error) {
	name = filepath.Clean(name)

	if filepath.IsAbs(name) {
		return "", xerrors.Newf("absolute path in tar: %s", name)
	}
	if strings.Contains(name, "..") {
		return "", xerrors.Newf("path traversal in tar: %s", name)
	}

	target := filepath.Join(dst, name)
	cleanDst := filepath.Clean(dst) + string(os.PathSeparator)
	if !strings.HasPrefix(filepath.Clean(target)+string(os.PathSeparator), cleanDst) {
		return "", xerrors.Newf("path escapes destination: %s", name)
	}
	return target, nil
}

// writeFile writes one archive entry with a size limit to guard against
// decompression bombs.
func writeFile(path string, r io.Reader, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return xerrors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	lr := io.LimitReader(r, maxSingleFile+1)
	n, err := io.Copy(f, lr)
	if err != nil {
		return xerrors.Wrapf(err, "write %s", path)
	}
	if n > maxSingleFile {
		return xerrors.Newf("file too large: %s (%d bytes)", path, n)
	}
	return nil
}
