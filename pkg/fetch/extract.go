package fetch

import (
	"archive/tar"
	"compress/bzip2"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/matzehuels/podkit/pkg/errors"
)

// Format is an archive container recognized by file name suffix.
type Format string

const (
	FormatZip    Format = "zip"
	FormatTar    Format = "tar"
	FormatTarGz  Format = "tar.gz"
	FormatTarBz2 Format = "tar.bz2"
	FormatTarZst Format = "tar.zst"
	FormatTarLz4 Format = "tar.lz4"
)

var suffixes = []struct {
	suffix string
	format Format
}{
	{".zip", FormatZip},
	{".tar", FormatTar},
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.bz2", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tar.zst", FormatTarZst},
	{".tzst", FormatTarZst},
	{".tar.lz4", FormatTarLz4},
}

// DetectFormat returns the archive format for a file name, ignoring case.
func DetectFormat(name string) (Format, bool) {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format, true
		}
	}
	return "", false
}

// Extract unpacks the archive file at path into dest. The format is chosen
// from name (usually the last URL path component), since downloads land in
// suffix-less temp files. Unknown suffixes are UNSUPPORTED_ARCHIVE errors.
//
// Entries that would land outside dest are rejected. Files and directories
// are created through an [os.Root], so a symlink planted by an earlier entry
// cannot redirect a later write. Symbolic links are kept only when they
// resolve inside dest once the archive is fully unpacked.
func Extract(path, name, dest string) error {
	format, ok := DetectFormat(name)
	if !ok {
		return errors.New(errors.ErrCodeUnsupportedArchive, "unsupported archive format: %s", name)
	}
	x, err := newExtractor(dest)
	if err != nil {
		return err
	}
	defer x.close()

	if format == FormatZip {
		err = x.zip(path)
	} else {
		err = x.tarFile(path, format)
	}
	if pruneErr := x.pruneLinks(); err == nil {
		err = pruneErr
	}
	return err
}

// extractor writes archive entries below one destination directory.
type extractor struct {
	dest  string // absolute, symlinks resolved
	root  *os.Root
	links []string
}

func newExtractor(dest string) (*extractor, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	root, err := os.OpenRoot(resolved)
	if err != nil {
		return nil, err
	}
	return &extractor{dest: resolved, root: root}, nil
}

func (x *extractor) close() {
	x.root.Close()
}

func (x *extractor) tarFile(path string, format Format) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case FormatTarBz2:
		r = bzip2.NewReader(f)
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	case FormatTarLz4:
		r = lz4.NewReader(f)
	}
	return x.tar(r)
}

func (x *extractor) tar(r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}

		rel, err := entryPath(hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = x.mkdirAll(rel)
		case tar.TypeReg:
			err = x.writeFile(rel, tr, hdr.FileInfo().Mode())
		case tar.TypeSymlink:
			err = x.symlink(rel, hdr.Linkname)
		case tar.TypeLink:
			err = x.hardlink(rel, hdr.Linkname)
		}
		if err != nil {
			return err
		}
	}
}

func (x *extractor) zip(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("zip: %w", err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		rel, err := entryPath(zf.Name)
		if err != nil {
			return err
		}
		mode := zf.Mode()

		switch {
		case mode.IsDir():
			err = x.mkdirAll(rel)
		case mode&os.ModeSymlink != 0:
			var link []byte
			if link, err = readZipEntry(zf); err == nil {
				err = x.symlink(rel, string(link))
			}
		default:
			var rc io.ReadCloser
			if rc, err = zf.Open(); err == nil {
				err = x.writeFile(rel, rc, mode)
				rc.Close()
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func readZipEntry(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// entryPath cleans an archive entry name into a path relative to the
// destination, rejecting names that climb out of it.
func entryPath(name string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", errors.New(errors.ErrCodeInvalidPath, "archive entry escapes destination: %s", name)
	}
	return rel, nil
}

func (x *extractor) within(path string) bool {
	return path == x.dest || strings.HasPrefix(path, x.dest+string(os.PathSeparator))
}

func (x *extractor) mkdirAll(rel string) error {
	if rel == "." {
		return nil
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	for i := range parts {
		dir := filepath.Join(parts[:i+1]...)
		err := x.root.Mkdir(dir, 0o755)
		if err == nil {
			continue
		}
		if !stderrors.Is(err, fs.ErrExist) {
			return err
		}
		info, err := x.root.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("archive entry %s: %s is not a directory", rel, dir)
		}
	}
	return nil
}

func (x *extractor) writeFile(rel string, r io.Reader, mode os.FileMode) error {
	if err := x.mkdirAll(filepath.Dir(rel)); err != nil {
		return err
	}
	f, err := x.root.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// realParent creates the parent of rel and returns its on-disk location with
// symlinks resolved. It fails when that location is outside dest.
func (x *extractor) realParent(rel string) (string, error) {
	dir := filepath.Dir(rel)
	if err := x.mkdirAll(dir); err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(filepath.Join(x.dest, dir))
	if err != nil {
		return "", err
	}
	if !x.within(resolved) {
		return "", errors.New(errors.ErrCodeInvalidPath, "archive entry escapes destination: %s", rel)
	}
	return resolved, nil
}

// symlink creates rel -> link when the link target resolves inside dest.
// Framework bundles rely on relative links such as Versions/Current -> A.
func (x *extractor) symlink(rel, link string) error {
	if filepath.IsAbs(link) || rel == "." {
		return nil
	}
	parent, err := x.realParent(rel)
	if err != nil {
		return err
	}
	if !x.within(filepath.Join(parent, link)) {
		return nil
	}
	target := filepath.Join(parent, filepath.Base(rel))
	_ = os.Remove(target)
	if err := os.Symlink(link, target); err != nil {
		return err
	}
	x.links = append(x.links, target)
	return nil
}

func (x *extractor) hardlink(rel, linkname string) error {
	srcRel, err := entryPath(linkname)
	if err != nil {
		return err
	}
	src, err := filepath.EvalSymlinks(filepath.Join(x.dest, srcRel))
	if err != nil {
		return err
	}
	if !x.within(src) {
		return errors.New(errors.ErrCodeInvalidPath, "archive link escapes destination: %s", linkname)
	}
	parent, err := x.realParent(rel)
	if err != nil {
		return err
	}
	return os.Link(src, filepath.Join(parent, filepath.Base(rel)))
}

// pruneLinks removes symlinks that, with every entry in place, dangle or
// resolve outside dest.
func (x *extractor) pruneLinks() error {
	for _, link := range x.links {
		resolved, err := filepath.EvalSymlinks(link)
		if err == nil && x.within(resolved) {
			continue
		}
		if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
