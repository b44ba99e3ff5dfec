package backend

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/tuple"
)

const (
	keyResultSet = "result-set"
	keyDocs      = "docs"
)

// Decoder reads tuples from a result-set response body as they arrive.
type Decoder struct {
	body    io.ReadCloser
	dec     *json.Decoder
	started bool
	ended   bool
}

// NewDecoder returns a Decoder over body. Closing the decoder closes body.
func NewDecoder(body io.ReadCloser) *Decoder {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	return &Decoder{body: body, dec: dec}
}

// Read returns the next tuple of the docs array, EOF and error tuples
// included. It returns io.EOF when the body ends before another tuple;
// anything that is not a result-set document is a stream failure.
func (d *Decoder) Read(ctx context.Context) (tuple.Tuple, error) {
	if err := ctx.Err(); err != nil {
		return tuple.Tuple{}, errors.StreamFailure(err)
	}
	if d.ended {
		return tuple.Tuple{}, io.EOF
	}
	if !d.started {
		if err := d.seekDocs(); err != nil {
			return tuple.Tuple{}, d.failure(err)
		}
		d.started = true
	}
	if !d.dec.More() {
		d.ended = true
		return tuple.Tuple{}, io.EOF
	}
	t, err := tuple.Decode(d.dec)
	if err != nil {
		return tuple.Tuple{}, d.failure(err)
	}
	return t, nil
}

// Close releases the response body.
func (d *Decoder) Close() error {
	return d.body.Close()
}

// seekDocs advances to the first element of result-set.docs, skipping any
// sibling keys.
func (d *Decoder) seekDocs() error {
	if err := d.expect('{'); err != nil {
		return err
	}
	if err := d.seekKey(keyResultSet); err != nil {
		return err
	}
	if err := d.expect('{'); err != nil {
		return err
	}
	if err := d.seekKey(keyDocs); err != nil {
		return err
	}
	return d.expect('[')
}

func (d *Decoder) seekKey(key string) error {
	for d.dec.More() {
		tok, err := d.dec.Token()
		if err != nil {
			return err
		}
		if tok == key {
			return nil
		}
		var skip json.RawMessage
		if err := d.dec.Decode(&skip); err != nil {
			return err
		}
	}
	return fmt.Errorf("no %q in response", key)
}

func (d *Decoder) expect(delim json.Delim) error {
	tok, err := d.dec.Token()
	if err != nil {
		return err
	}
	if got, ok := tok.(json.Delim); !ok || got != delim {
		return fmt.Errorf("expected %v, got %v", delim, tok)
	}
	return nil
}

// failure maps a truncated body to io.EOF and everything else to a stream
// failure.
func (d *Decoder) failure(err error) error {
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		d.ended = true
		return io.EOF
	}
	return errors.StreamFailure(fmt.Errorf("backend: malformed response: %w", err))
}
