package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/tuplestream/backend"
	"github.com/kbukum/tuplestream/engine"
	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/expr"
	"github.com/kbukum/tuplestream/store"
	"github.com/kbukum/tuplestream/stream"
)

const (
	localFlag     = "local"
	requestIDFlag = "request-id"
)

func newQueryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <expression>",
		Short: "Evaluate an expression and print its tuples as JSON lines",
		Long: `Evaluate a streaming expression and print one JSON object per tuple. The
request goes to the configured backend, or with --local is evaluated against
the local store. It is routed to the collection of the leftmost source.`,
		Example: `  tuplestream query 'unique(search(genes, q="*:*", fl="gene,organism", sort="gene asc"), over="gene")'`,
		Args:    cobra.ExactArgs(1),
		RunE:    a.query,
	}
	cmd.Flags().Bool(localFlag, false, "evaluate in process against the local store")
	cmd.Flags().String(requestIDFlag, "", "request ID sent with the stream (generated when empty)")
	return cmd
}

func (a *app) query(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	x, err := expr.Parse(args[0])
	if err != nil {
		return errors.InvalidStream("%v", err)
	}
	local, _ := cmd.Flags().GetBool(localFlag)
	requestID, _ := cmd.Flags().GetString(requestIDFlag)

	var transport stream.Transport
	if local {
		st, err := store.Open(ctx, a.cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
		eng := engine.New(st)
		if _, err := eng.Compile(x); err != nil {
			return err
		}
		transport = eng
	} else {
		b, err := backend.New(a.cfg.Backend)
		if err != nil {
			return err
		}
		defer b.Close()
		transport = b
	}

	var opts []stream.Option
	if m := a.telemetry.Metrics; m != nil {
		opts = append(opts, stream.WithMetrics(m))
	}
	if requestID != "" {
		opts = append(opts, stream.WithRequestID(requestID))
	}
	s, err := stream.Of(transport, stream.FromExpression(x), opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	out := bufio.NewWriter(cmd.OutOrStdout())
	for t, err := range s.Get(ctx) {
		if err != nil {
			_ = out.Flush()
			return err
		}
		b, err := t.MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s\n", b); err != nil {
			return err
		}
	}
	return out.Flush()
}
