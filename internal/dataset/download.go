package dataset

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// source is one downloadable file of a dataset.
type source struct {
	URL string
	// Archive marks a .tar.gz whose contents are extracted into root.
	Archive bool
	// Check is the path, relative to root, whose presence means the source
	// is already available.
	Check string
}

var (
	cifar10Sources = []source{{
		URL:     "https://www.cs.toronto.edu/~kriz/cifar-10-binary.tar.gz",
		Archive: true,
		Check:   filepath.Join(cifar10Dir, "test_batch.bin"),
	}}
	cifar100Sources = []source{{
		URL:     "https://www.cs.toronto.edu/~kriz/cifar-100-binary.tar.gz",
		Archive: true,
		Check:   filepath.Join(cifar100Dir, "test.bin"),
	}}
	svhnSources = []source{
		{URL: "http://ufldl.stanford.edu/housenumbers/train_32x32.mat", Check: svhnTrainFile},
		{URL: "http://ufldl.stanford.edu/housenumbers/test_32x32.mat", Check: svhnTestFile},
	}
)

// Downloader fetches dataset files over HTTP.
type Downloader struct {
	Client *http.Client
	// Mirror, when set, replaces the scheme and host of every source URL;
	// the original file name is appended to it.
	Mirror string
}

// NewDownloader returns a downloader with a generous timeout for the
// multi-hundred-megabyte archives.
func NewDownloader() *Downloader {
	return &Downloader{Client: &http.Client{Timeout: 30 * time.Minute}}
}

// Fetch downloads every missing file of a dataset into root.
func (d *Downloader) Fetch(ctx context.Context, name, root string) error {
	info, err := Lookup(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}

	for _, src := range info.sources {
		if _, err := os.Stat(filepath.Join(root, src.Check)); err == nil {
			continue
		}
		if err := d.fetch(ctx, src, root); err != nil {
			return fmt.Errorf("download %s: %w", info.Name, err)
		}
	}
	return nil
}

func (d *Downloader) resolve(raw string) (string, error) {
	if d.Mirror == "" {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(d.Mirror, "/") + "/" + path.Base(u.Path), nil
}

func (d *Downloader) fetch(ctx context.Context, src source, root string) error {
	target, err := d.resolve(src.URL)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return err
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", target, resp.Status)
	}

	if src.Archive {
		return extractTarGz(resp.Body, root)
	}
	return writeAtomic(filepath.Join(root, src.Check), resp.Body)
}

// extractTarGz unpacks regular files and directories of a gzip-compressed
// tar stream into root. Entries escaping root are rejected.
func extractTarGz(r io.Reader, root string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		name := filepath.Clean(filepath.FromSlash(hdr.Name))
		if filepath.IsAbs(name) || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
			return fmt.Errorf("archive entry %q escapes target directory", hdr.Name)
		}
		dst := filepath.Join(root, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return err
			}
			//nolint:gosec // archive size is bounded by the published dataset
			if err := writeAtomic(dst, tr); err != nil {
				return err
			}
		}
	}
}

// writeAtomic writes r to a temporary file next to dst and renames it into place.
func writeAtomic(dst string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".part-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
