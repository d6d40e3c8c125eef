package testhelpers

import (
	"bytes"
	"testing"

	"github.com/parquet-go/parquet-go"
)

// ParquetBytes encodes rows as a Parquet file. Column names and types come
// from the struct's parquet tags.
func ParquetBytes[T any](t *testing.T, rows []T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		t.Fatalf("failed to encode parquet fixture: %v", err)
	}
	return buf.Bytes()
}
