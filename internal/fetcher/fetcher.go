package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// SourceOptions configures Open.
type SourceOptions struct {
	HTTP HTTPOptions
	FTP  FTPOptions
	// TempDir holds downloads and unpacked archives; "" uses the OS default.
	TempDir string

	// fetchers overrides scheme dispatch in tests.
	fetchers map[string]Fetcher
}

// Source is an opened registry file.
type Source struct {
	io.ReadCloser
	// Name is the base name of the data file, used to derive the output name.
	Name string

	workDir string
}

// Close closes the file and removes any downloaded or unpacked copies.
func (s *Source) Close() error {
	err := s.ReadCloser.Close()
	if s.workDir != "" {
		if rmErr := os.RemoveAll(s.workDir); rmErr != nil {
			zap.L().Warn("fetcher: remove work dir", zap.String("dir", s.workDir), zap.Error(rmErr))
		}
	}
	return eris.Wrap(err, "fetcher: close source")
}

// Open resolves a local path, http(s):// URL or ftp:// URL to a readable
// registry file. ZIP archives are unpacked and their single file is opened.
func Open(ctx context.Context, source string, opts SourceOptions) (*Source, error) {
	local := source
	var workDir string

	ensureWorkDir := func() (string, error) {
		if workDir != "" {
			return workDir, nil
		}
		dir, err := os.MkdirTemp(opts.TempDir, "addrenrich-*")
		if err != nil {
			return "", eris.Wrap(err, "fetcher: create work dir")
		}
		workDir = dir
		return dir, nil
	}
	fail := func(err error) (*Source, error) {
		if workDir != "" {
			_ = os.RemoveAll(workDir)
		}
		return nil, err
	}

	if f, name, ok, err := remoteFetcher(source, opts); err != nil {
		return nil, err
	} else if ok {
		dir, err := ensureWorkDir()
		if err != nil {
			return nil, err
		}
		local = filepath.Join(dir, name)
		n, err := f.DownloadToFile(ctx, source, local)
		if err != nil {
			return fail(eris.Wrapf(err, "fetcher: download %s", source))
		}
		zap.L().Info("fetcher: downloaded input", zap.String("source", source), zap.Int64("bytes", n))
	}

	if strings.EqualFold(filepath.Ext(local), ".zip") {
		dir, err := ensureWorkDir()
		if err != nil {
			return fail(err)
		}
		extracted, err := ExtractZIPSingle(local, filepath.Join(dir, "unzipped"))
		if err != nil {
			return fail(eris.Wrapf(err, "fetcher: unpack %s", local))
		}
		local = extracted
	}

	file, err := os.Open(local)
	if err != nil {
		return fail(eris.Wrapf(err, "fetcher: open %s", local))
	}

	return &Source{ReadCloser: file, Name: filepath.Base(local), workDir: workDir}, nil
}

// remoteFetcher picks a Fetcher by URL scheme. ok is false for local paths.
func remoteFetcher(source string, opts SourceOptions) (Fetcher, string, bool, error) {
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 { // "C:" drive letters are local
		return nil, "", false, nil
	}
	scheme := strings.ToLower(u.Scheme)

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		name = "download"
	}

	if f, ok := opts.fetchers[scheme]; ok {
		return f, name, true, nil
	}
	switch scheme {
	case "http", "https":
		return NewHTTPFetcher(opts.HTTP), name, true, nil
	case "ftp":
		return NewFTPFetcher(opts.FTP), name, true, nil
	case "file":
		return nil, "", false, eris.Errorf("fetcher: use a plain path instead of %q", source)
	default:
		return nil, "", false, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
