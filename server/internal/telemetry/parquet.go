package telemetry

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// readParquet reads all rows of a Parquet file whose columns match Record's
// parquet tags.
func readParquet(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[Record](f, parquet.ReadBufferSize(1024*1024))
	defer reader.Close()

	rows := make([]Record, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	if int64(n) != reader.NumRows() {
		return nil, fmt.Errorf("read parquet: got %d of %d rows", n, reader.NumRows())
	}

	for i, rec := range rows {
		if err := validate(rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return rows, nil
}

// WriteParquet writes records to path as a zstd-compressed Parquet file
// readable by Load.
func WriteParquet(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("telemetry: create %q: %w", path, err)
	}

	w := parquet.NewGenericWriter[Record](f, parquet.Compression(&parquet.Zstd))
	if _, err := w.Write(records); err != nil {
		f.Close()
		return fmt.Errorf("telemetry: write parquet: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("telemetry: close parquet writer: %w", err)
	}
	return f.Close()
}
