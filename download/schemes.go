package download

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Data decodes a data: URL of the form data:[mime][;charset=..][;base64],payload. The payload is base64 or
// percent encoded. Text in another charset is re-encoded from UTF-8.
func Data(_ context.Context, u string) ([]byte, string, error) {
	if !strings.HasPrefix(u, "data:") {
		return nil, "", fmt.Errorf("%s: not a data URL", abbreviate(u))
	}
	comma := strings.IndexByte(u, ',')
	if comma == -1 {
		return nil, "", fmt.Errorf("%s: data URL without comma", abbreviate(u))
	}
	headers := strings.Split(u[5:comma], ";")
	mimetype := baseMIME(headers[0])
	if mimetype == "" {
		mimetype = DefaultMIME
	}
	isBase64 := false
	charset := ""
	for _, h := range headers[1:] {
		if h == "base64" {
			isBase64 = true
		} else if strings.HasPrefix(h, "charset=") {
			charset = h[8:]
		}
	}

	payload := u[comma+1:]
	if isBase64 {
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		if unescaped, err := url.PathUnescape(payload); err == nil {
			payload = unescaped
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
				return nil, "", fmt.Errorf("%s: %w", abbreviate(u), err)
			}
		}
		return data, mimetype, nil
	}

	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", abbreviate(u), err)
	}
	if charset != "" && !strings.EqualFold(charset, "utf-8") {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", abbreviate(u), err)
		}
		if text, err = enc.NewEncoder().String(text); err != nil {
			return nil, "", fmt.Errorf("%s: %w", abbreviate(u), err)
		}
	}
	return []byte(text), mimetype, nil
}

// FilePath returns the local path of a file: URL. It accepts file:///abs, file://localhost/abs, file:/abs and the
// relative forms file://./rel and file:./rel.
func FilePath(u string) (string, error) {
	if !strings.HasPrefix(u, "file:") {
		return "", fmt.Errorf("%s: not a file URL", u)
	}
	if i := strings.IndexAny(u, "?#"); i != -1 {
		u = u[:i]
	}
	components := strings.Split(u, "/")
	var name string
	if 1 < len(components) && components[1] != "" {
		// file:/abs or file:./rel
		if components[0] == "file:." {
			name = strings.Join(components, "/")[5:]
		} else {
			name = "/" + strings.Join(components[1:], "/")
		}
	} else if len(components) == 1 {
		name = u[5:]
	} else if 2 < len(components) {
		switch host := components[2]; host {
		case "", "localhost":
			name = "/" + strings.Join(components[3:], "/")
		case ".":
			name = strings.Join(components[3:], "/")
		default:
			return "", fmt.Errorf("%s: only localhost files are supported", u)
		}
	} else {
		return "", fmt.Errorf("%s: bad file URL", u)
	}
	return url.PathUnescape(name)
}

// File reads a local file. The MIME type is guessed from the extension, and then from the content.
func File(_ context.Context, u string) ([]byte, string, error) {
	name, err := FilePath(u)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, "", err
	}
	return data, Sniff(name, data), nil
}

// HTTP downloads http and https URLs. The MIME type is taken from the Content-Type header, or sniffed when absent.
type HTTP struct {
	Client *http.Client
}

// Download implements Downloader.
func (d *HTTP) Download(ctx context.Context, u string) ([]byte, string, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || 300 <= resp.StatusCode {
		return nil, "", fmt.Errorf("%s: %s", u, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", u, err)
	}
	mimetype := baseMIME(resp.Header.Get("Content-Type"))
	if mimetype == "" {
		mimetype = Sniff(resp.Request.URL.Path, data)
	}
	return data, mimetype, nil
}

// Chrome serves chrome://<path> from a bundled resource tree. Stylesheets are text/css, everything else is
// application/octet-stream.
type Chrome struct {
	FS fs.FS
}

// Download implements Downloader.
func (d *Chrome) Download(_ context.Context, u string) ([]byte, string, error) {
	if !strings.HasPrefix(u, "chrome://") {
		return nil, "", fmt.Errorf("%s: bad chrome URL", u)
	}
	name := path.Clean(strings.TrimPrefix(u[9:], "/"))
	data, err := fs.ReadFile(d.FS, name)
	if err != nil {
		return nil, "", err
	}
	if path.Ext(name) == ".css" {
		return data, "text/css", nil
	}
	return data, DefaultMIME, nil
}

// CID resolves cid: URLs through an injected resource table.
type CID struct {
	Resources Downloader
}

// Download implements Downloader.
func (d *CID) Download(ctx context.Context, u string) ([]byte, string, error) {
	if d.Resources == nil {
		return []byte{}, NullMIME, nil
	}
	return d.Resources.Download(ctx, u)
}
