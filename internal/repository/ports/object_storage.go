package ports

import (
	"context"
	"io"
)

// ObjectStorage archives raw uploads (migration CSVs) outside the database.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error)
}
