// Package download fetches the bytes and MIME type of a URL. Each URL scheme has its own downloader, the Registry
// picks one by the scheme of the URL.
package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/h2non/filetype"
)

// ErrUnsupportedScheme is returned for URLs whose scheme has no downloader.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// NullMIME is the MIME type of the empty document.
const NullMIME = "application/x-null"

// DefaultMIME is the MIME type of data of unknown type.
const DefaultMIME = "application/octet-stream"

// Downloader fetches a URL of one scheme.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// Func adapts a function to a Downloader.
type Func func(ctx context.Context, url string) ([]byte, string, error)

// Download implements Downloader.
func (f Func) Download(ctx context.Context, url string) ([]byte, string, error) {
	return f(ctx, url)
}

// Options configures the downloaders of a registry.
type Options struct {
	// Chrome holds the bundled resources served by chrome:// URLs, default is the directory "chrome".
	Chrome fs.FS

	// Resources resolves cid: URLs. Without it cid: URLs give an empty null document.
	Resources Downloader

	// Client is used for http and https, default is http.DefaultClient.
	Client *http.Client

	Logger *slog.Logger
}

// DefaultOptions are the default options.
var DefaultOptions = Options{}

// Registry maps URL schemes to downloaders.
type Registry struct {
	mu      sync.RWMutex
	schemes map[string]Downloader
	logger  *slog.Logger
}

// New returns a registry with downloaders for the data, file, http, https, chrome and cid schemes.
func New(opts *Options) *Registry {
	if opts == nil {
		opts = &DefaultOptions
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chrome := opts.Chrome
	if chrome == nil {
		chrome = os.DirFS("chrome")
	}

	r := &Registry{
		schemes: map[string]Downloader{},
		logger:  logger,
	}
	r.Register("data", Func(Data))
	r.Register("file", Func(File))
	httpDownloader := &HTTP{Client: opts.Client}
	r.Register("http", httpDownloader)
	r.Register("https", httpDownloader)
	r.Register("chrome", &Chrome{FS: chrome})
	r.Register("cid", &CID{Resources: opts.Resources})
	return r
}

// Register sets the downloader of a scheme, replacing any previous one.
func (r *Registry) Register(scheme string, d Downloader) {
	r.mu.Lock()
	r.schemes[strings.ToLower(scheme)] = d
	r.mu.Unlock()
}

// Scheme returns the lower-cased scheme of a URL, or an empty string if it has none.
func Scheme(url string) string {
	i := strings.IndexByte(url, ':')
	if i <= 0 {
		return ""
	}
	for j, c := range url[:i] {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || 0 < j && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.')) {
			return ""
		}
	}
	return strings.ToLower(url[:i])
}

// Download fetches a URL with the downloader of its scheme.
func (r *Registry) Download(ctx context.Context, url string) ([]byte, string, error) {
	scheme := Scheme(url)
	r.mu.RLock()
	d, ok := r.schemes[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("%s: %w", url, ErrUnsupportedScheme)
	}

	data, mimetype, err := d.Download(ctx, url)
	if err != nil {
		r.logger.Debug("download failed", "url", abbreviate(url), "error", err)
		return nil, "", err
	}
	r.logger.Debug("downloaded", "url", abbreviate(url), "mime", mimetype, "size", len(data))
	return data, mimetype, nil
}

func abbreviate(url string) string {
	if 64 < len(url) {
		return url[:61] + "..."
	}
	return url
}

// Sniff returns the MIME type of data, guessed from the file name extension first and the content second.
func Sniff(name string, data []byte) string {
	if ext := path.Ext(name); ext != "" {
		switch strings.ToLower(ext) {
		case ".svg":
			return "image/svg+xml"
		case ".css":
			return "text/css"
		case ".txt":
			return "text/plain"
		case ".xml":
			return "application/xml"
		}
		if t := mime.TypeByExtension(ext); t != "" {
			return baseMIME(t)
		}
	}
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return DefaultMIME
}

// baseMIME strips the parameters of a MIME type.
func baseMIME(t string) string {
	if i := strings.IndexByte(t, ';'); i != -1 {
		t = t[:i]
	}
	return strings.ToLower(strings.TrimSpace(t))
}
