package stream

import (
	"context"

	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/tuple"
)

//go:generate mockgen -destination=../internal/mocks/transport.go -package=mocks github.com/kbukum/tuplestream/stream Transport,TupleReader

// TupleReader is an open cursor over the tuples of one stream.
type TupleReader interface {
	// Read returns the next tuple as delivered, including the EOF marker and
	// error tuples. io.EOF reports a body that ended without an EOF marker.
	Read(ctx context.Context) (tuple.Tuple, error)
	// Close releases the cursor and its connection.
	Close() error
}

// Transport sends an expression to wherever it is evaluated. The request is
// routed to collection.
type Transport interface {
	OpenStream(ctx context.Context, collection string, e *expr.Expression) (TupleReader, error)
}
