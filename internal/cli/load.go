package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/kbukum/tuplestream/store"
	"github.com/kbukum/tuplestream/tuple"
)

const batchSizeFlag = "batch-size"

func newLoadCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <collection> <file>",
		Short: "Index a file of JSON documents into a collection",
		Long: `Index the documents of a file into a collection of the local store. The
file holds either one JSON object per line or a single JSON array of objects.
Documents with an existing id replace the stored one.`,
		Args: cobra.ExactArgs(2),
		RunE: a.load,
	}
	cmd.Flags().Int(batchSizeFlag, 1000, "documents per transaction")
	return cmd
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	collection, path := args[0], args[1]
	batch, err := cmd.Flags().GetInt(batchSizeFlag)
	if err != nil {
		return err
	}
	if batch < 1 {
		return fmt.Errorf("--%s must be at least 1", batchSizeFlag)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	docs, err := parseDocuments(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	st, err := store.Open(cmd.Context(), a.cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	total := 0
	for start := 0; start < len(docs); start += batch {
		end := min(start+batch, len(docs))
		n, err := st.Index(cmd.Context(), collection, docs[start:end])
		if err != nil {
			return err
		}
		total += n
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents into %s\n", total, collection)
	return err
}

// parseDocuments reads JSON lines, or one JSON array, of objects.
func parseDocuments(data []byte) ([]tuple.Tuple, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if !gjson.ValidBytes(trimmed) {
			return nil, fmt.Errorf("invalid JSON array")
		}
		var (
			docs []tuple.Tuple
			err  error
		)
		i := 0
		gjson.ParseBytes(trimmed).ForEach(func(_, v gjson.Result) bool {
			var t tuple.Tuple
			t, err = parseObject(v)
			if err != nil {
				err = fmt.Errorf("element %d: %w", i, err)
				return false
			}
			docs = append(docs, t)
			i++
			return true
		})
		return docs, err
	}

	var docs []tuple.Tuple
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return nil, fmt.Errorf("line %d: invalid JSON", i+1)
		}
		t, err := parseObject(gjson.ParseBytes(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		docs = append(docs, t)
	}
	return docs, nil
}

func parseObject(v gjson.Result) (tuple.Tuple, error) {
	if !v.IsObject() {
		return tuple.Tuple{}, fmt.Errorf("not a JSON object")
	}
	var t tuple.Tuple
	err := t.UnmarshalJSON([]byte(v.Raw))
	return t, err
}
