package fetcher

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONArray streams the elements of a top-level JSON array. An element
// that fails to decode into T is passed to onBad with its position and
// skipped; it does not stop the stream. Syntax errors in the array itself
// do. Both channels are closed when processing completes.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader, onBad func(pos int, err error)) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for pos := 0; decoder.More(); pos++ {
			var raw json.RawMessage
			if err := decoder.Decode(&raw); err != nil {
				errCh <- eris.Wrapf(err, "json: read element %d", pos)
				return
			}

			var item T
			if err := json.Unmarshal(raw, &item); err != nil {
				if onBad != nil {
					onBad(pos, err)
				}
				continue
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}

// ReadJSONArray collects DecodeJSONArray into a slice.
func ReadJSONArray[T any](ctx context.Context, r io.Reader, onBad func(pos int, err error)) ([]T, error) {
	items, errs := DecodeJSONArray[T](ctx, r, onBad)
	var out []T
	for item := range items {
		out = append(out, item)
	}
	if err := <-errs; err != nil {
		return nil, err
	}
	return out, nil
}
