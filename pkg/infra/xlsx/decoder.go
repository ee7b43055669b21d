// Package xlsx decodes Office Open XML workbooks with excelize.
package xlsx

import (
	"bytes"
	"context"
	"strconv"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/model"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
	"github.com/xuri/excelize/v2"
)

// Decoder loads workbooks from memory
type Decoder struct {
	opts excelize.Options
}

// NewDecoder creates a Decoder
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Load decodes data into a Workbook named name. Every error carries types.ErrTagDecodeFailure.
func (d *Decoder) Load(ctx context.Context, data []byte, name, locale, timezone string) (*model.Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), d.opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open workbook",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("name", name),
			goerr.V("size", len(data)))
	}
	defer func() {
		if err := f.Close(); err != nil {
			ctxlog.From(ctx).Warn("Failed to close workbook", "error", err)
		}
	}()

	wb := &model.Workbook{
		Name:     name,
		Locale:   locale,
		Timezone: timezone,
	}

	for _, sheetName := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "workbook decoding cancelled", goerr.T(types.ErrTagDecodeFailure))
		}

		sheet, err := loadSheet(f, sheetName)
		if err != nil {
			return nil, err
		}
		wb.Sheets = append(wb.Sheets, *sheet)
	}

	for _, dn := range f.GetDefinedName() {
		wb.DefinedNames = append(wb.DefinedNames, model.DefinedName{
			Name:     dn.Name,
			Scope:    dn.Scope,
			RefersTo: dn.RefersTo,
		})
	}

	ctxlog.From(ctx).Debug("Decoded workbook",
		"name", name,
		"sheets", len(wb.Sheets),
		"defined_names", len(wb.DefinedNames),
	)

	return wb, nil
}

func loadSheet(f *excelize.File, sheetName string) (*model.Sheet, error) {
	sheet := &model.Sheet{
		Name:  sheetName,
		Cells: []model.Cell{},
	}

	if dim, err := f.GetSheetDimension(sheetName); err == nil {
		sheet.Dimension = dim
	}

	merged, err := f.GetMergeCells(sheetName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read merged cells",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("sheet", sheetName))
	}
	for _, mc := range merged {
		sheet.MergeCells = append(sheet.MergeCells, mc.GetStartAxis()+":"+mc.GetEndAxis())
	}

	rows, err := f.Rows(sheetName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read rows",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("sheet", sheetName))
	}
	defer rows.Close()

	// GetRows stops at the first unreadable row without reporting it, so iterate directly
	for rowIdx := 0; rows.Next(); rowIdx++ {
		row, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read row",
				goerr.T(types.ErrTagDecodeFailure),
				goerr.V("sheet", sheetName),
				goerr.V("row", rowIdx+1))
		}

		for colIdx, value := range row {
			cell, err := loadCell(f, sheetName, rowIdx+1, colIdx+1, value)
			if err != nil {
				return nil, err
			}
			if cell != nil {
				sheet.Cells = append(sheet.Cells, *cell)
			}
		}
	}
	if err := rows.Error(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate rows",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("sheet", sheetName))
	}
	if err := rows.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to close row iterator",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("sheet", sheetName))
	}

	return sheet, nil
}

// loadCell returns nil for cells with neither value nor formula
func loadCell(f *excelize.File, sheetName string, row, col int, value string) (*model.Cell, error) {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid cell coordinates",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("sheet", sheetName),
			goerr.V("row", row),
			goerr.V("col", col))
	}

	formula, err := f.GetCellFormula(sheetName, ref)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read cell formula",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("sheet", sheetName),
			goerr.V("ref", ref))
	}
	if value == "" && formula == "" {
		return nil, nil
	}

	cellType, err := f.GetCellType(sheetName, ref)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read cell type",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("sheet", sheetName),
			goerr.V("ref", ref))
	}

	return &model.Cell{
		Ref:     ref,
		Row:     row,
		Col:     col,
		Type:    toCellType(cellType, value, formula),
		Value:   value,
		Formula: formula,
	}, nil
}

func toCellType(t excelize.CellType, value, formula string) model.CellType {
	if formula != "" {
		return model.CellTypeFormula
	}

	switch t {
	case excelize.CellTypeBool:
		return model.CellTypeBool
	case excelize.CellTypeDate:
		return model.CellTypeDate
	case excelize.CellTypeError:
		return model.CellTypeError
	case excelize.CellTypeNumber:
		return model.CellTypeNumber
	case excelize.CellTypeFormula:
		return model.CellTypeFormula
	case excelize.CellTypeInlineString, excelize.CellTypeSharedString:
		return model.CellTypeString
	case excelize.CellTypeUnset:
		// cells without a t attribute hold numbers unless the writer omitted it for text
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return model.CellTypeNumber
		}
		return model.CellTypeString
	default:
		return model.CellTypeUnknown
	}
}
