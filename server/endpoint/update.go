package endpoint

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/tuplestream/errors"
	"github.com/kbukum/tuplestream/logger"
	"github.com/kbukum/tuplestream/tuple"
)

// Indexer stores documents. *store.Store implements it.
type Indexer interface {
	Index(ctx context.Context, collection string, docs []tuple.Tuple) (int, error)
}

// UpdateResult is the body of a successful update.
type UpdateResult struct {
	Collection string `json:"collection"`
	Indexed    int    `json:"indexed"`
}

// Update returns the handler of POST /:collection/update, which indexes a
// JSON array of documents.
func Update(ix Indexer, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		collection := c.Param("collection")
		var docs []tuple.Tuple
		if err := c.ShouldBindJSON(&docs); err != nil {
			RespondWithError(c, errors.InvalidInput("body", err.Error()))
			return
		}
		n, err := ix.Index(c.Request.Context(), collection, docs)
		if err != nil {
			RespondWithError(c, err)
			return
		}
		log.WithContext(c.Request.Context()).Info("documents indexed", logger.Fields(
			logger.FieldCollection, collection,
			"count", n,
		))
		RespondOK(c, UpdateResult{Collection: collection, Indexed: n})
	}
}
