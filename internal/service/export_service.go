package service

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
)

// fileExporter implements ports.Exporter on the local filesystem.
type fileExporter struct {
	log zerolog.Logger
}

// NewExporter creates a new exporter.
func NewExporter(log zerolog.Logger) ports.Exporter {
	return &fileExporter{log: log}
}

// ToCSV writes rows with a header line. Empty input is an error and leaves no file behind.
func (e *fileExporter) ToCSV(rows []domain.DetailRecord, path string) error {
	if len(rows) == 0 {
		return apperror.ErrExport("no rows to export", nil)
	}

	err := writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(domain.DetailHeader); err != nil {
			return err
		}
		for _, row := range rows {
			if err := cw.Write(row.CSVRow()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return apperror.ErrExport(fmt.Sprintf("writing %s", path), err)
	}

	e.log.Info().Str("path", path).Int("rows", len(rows)).Msg("CSV exported")
	return nil
}

// ToJSON writes v indented by two spaces, leaving non-ASCII and HTML characters unescaped.
func (e *fileExporter) ToJSON(v any, path string) error {
	err := writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
	if err != nil {
		return apperror.ErrExport(fmt.Sprintf("writing %s", path), err)
	}

	e.log.Info().Str("path", path).Msg("JSON exported")
	return nil
}

// writeAtomic writes to a temporary sibling of path and renames it into place.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
