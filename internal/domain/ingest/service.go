package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/granaflow/grana-api/internal/domain/common"
	"github.com/granaflow/grana-api/pkg/metrics"
)

// Excel MIME types accepted at the file boundary.
var excelMIMETypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.ms-excel":                                          true,
	"application/excel":                                                 true,
}

// maxXLSRows bounds legacy workbook reads; uploads are a few thousand rows
// at most.
const maxXLSRows = 10000

// Result summarizes one ingestion run. Per-row rejections are silent and
// only reflected in the counts.
type Result struct {
	Transactions []common.Transaction
	HeaderRow    int
	RowsTotal    int
	RowsAccepted int
	RowsDropped  int
}

// Service orchestrates spreadsheet ingestion: file-type gate, workbook
// decode, header discovery, and row projection.
type Service struct {
	strategies []HeaderStrategy
	projector  *Projector
	logger     *slog.Logger
}

// NewService creates an ingestion service scanning with the given header
// strategies.
func NewService(strategies []HeaderStrategy, logger *slog.Logger) *Service {
	return &Service{
		strategies: strategies,
		projector:  NewProjector(),
		logger:     logger,
	}
}

// WithProjector overrides the projector (tests inject a fixed clock).
func (s *Service) WithProjector(p *Projector) *Service {
	s.projector = p
	return s
}

// Ingest validates the upload, decodes the workbook, locates the header row,
// and projects canonical transactions. Structural failures (bad file type,
// no header) abort the whole ingestion with zero transactions; invalid rows
// are dropped silently.
func (s *Service) Ingest(ctx context.Context, filename, contentType string, data []byte) (*Result, error) {
	if err := validateFileType(filename, contentType); err != nil {
		metrics.IngestFailures.WithLabelValues("invalid_file_type").Inc()
		return nil, err
	}

	sheet, err := s.readWorkbook(filename, data)
	if err != nil {
		metrics.IngestFailures.WithLabelValues("unreadable_workbook").Inc()
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}

	headerRow, err := LocateHeader(sheet, s.strategies)
	if err != nil {
		metrics.IngestFailures.WithLabelValues("header_not_found").Inc()
		s.logger.Warn("ingestion aborted",
			slog.String("file", filename),
			slog.Int("rows", len(sheet)),
			slog.Any("error", err),
		)
		return nil, err
	}

	txs := s.projector.Project(sheet, headerRow)

	result := &Result{
		Transactions: txs,
		HeaderRow:    headerRow,
		RowsTotal:    len(sheet) - headerRow - 1,
		RowsAccepted: len(txs),
	}
	result.RowsDropped = result.RowsTotal - result.RowsAccepted

	metrics.RowsAccepted.Add(float64(result.RowsAccepted))
	metrics.RowsDropped.Add(float64(result.RowsDropped))

	s.logger.Info("ingestion completed",
		slog.String("file", filename),
		slog.Int("header_row", headerRow),
		slog.Int("rows_total", result.RowsTotal),
		slog.Int("rows_accepted", result.RowsAccepted),
		slog.Int("rows_dropped", result.RowsDropped),
	)

	return result, nil
}

// validateFileType enforces the .xlsx/.xls boundary. Everything else is
// rejected before any parsing starts.
func validateFileType(filename, contentType string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".xlsx" || ext == ".xls" {
		return nil
	}
	if excelMIMETypes[strings.ToLower(strings.TrimSpace(contentType))] {
		return nil
	}
	return ErrInvalidFileType
}

// readWorkbook decodes the first sheet of an Excel upload into a RawSheet.
// Legacy .xls binaries go through extrame/xls; everything else through
// excelize with raw cell values so serial dates survive untouched.
func (s *Service) readWorkbook(filename string, data []byte) (RawSheet, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xls") {
		wb, err := xls.OpenReader(bytes.NewReader(data), "cp1252")
		if err != nil {
			return nil, err
		}
		rows := wb.ReadAllCells(maxXLSRows)
		if len(rows) == 0 {
			return nil, ErrEmptySheet
		}
		return rows, nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return rows, nil
}
