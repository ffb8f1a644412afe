// Package fetcher opens snapshot sources from disk or HTTP and parses the
// JSON, CSV and XLSX shapes they arrive in.
package fetcher

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Opener opens a snapshot source for reading.
type Opener interface {
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

// Source opens local paths directly and http(s) URLs through HTTP.
type Source struct {
	HTTP *HTTPFetcher
}

// Open implements Opener.
func (s Source) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	if IsURL(source) {
		h := s.HTTP
		if h == nil {
			h = NewHTTPFetcher(HTTPOptions{})
		}
		return h.Download(ctx, source)
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", source)
	}
	return f, nil
}

// IsURL reports whether source is an http or https URL.
func IsURL(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
