package ingest

import (
	"bytes"
	"fmt"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/granaflow/grana-api/internal/domain/common"
)

// exportDateLayout re-encodes dates for round-trip compatibility with the
// ingestion pipeline's DD/MM/YYYY branch.
const exportDateLayout = "02/01/2006"

const exportSheetName = "Transações"

var exportHeaders = []interface{}{"Data", "Mes", "Ano", "Tipo", "Descricao", "Valor", "Categoria"}

// exportRow is the flat tabular shape shared by the CSV and XLSX exports.
type exportRow struct {
	Data      string `csv:"Data"`
	Mes       string `csv:"Mes"`
	Ano       int    `csv:"Ano"`
	Tipo      string `csv:"Tipo"`
	Descricao string `csv:"Descricao"`
	Valor     string `csv:"Valor"`
	Categoria string `csv:"Categoria"`
}

func toExportRow(tx common.Transaction) exportRow {
	return exportRow{
		Data:      tx.Date.Format(exportDateLayout),
		Mes:       tx.Month,
		Ano:       tx.Year,
		Tipo:      string(tx.Kind),
		Descricao: tx.Description,
		Valor:     tx.Amount.String(),
		Categoria: string(tx.Category),
	}
}

// ExportXLSX serializes transactions into a workbook that re-imports through
// Ingest without loss of (date, kind, description, amount, category).
func ExportXLSX(txs []common.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheetName, "A1", &exportHeaders); err != nil {
		return nil, err
	}

	for i, tx := range txs {
		row := toExportRow(tx)
		cells := []interface{}{row.Data, row.Mes, row.Ano, row.Tipo, row.Descricao, row.Valor, row.Categoria}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheetName, cell, &cells); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportCSV serializes transactions in the same fixed column order as the
// XLSX export.
func ExportCSV(txs []common.Transaction) ([]byte, error) {
	rows := make([]exportRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, toExportRow(tx))
	}
	return gocsv.MarshalBytes(&rows)
}
