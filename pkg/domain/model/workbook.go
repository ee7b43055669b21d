package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/types"
)

const (
	// DefaultLocale is the locale every decoded workbook is loaded with.
	DefaultLocale = "en"
	// DefaultTimezone is the timezone every decoded workbook is loaded with.
	DefaultTimezone = "UTC"

	workbookSuffix = ".xlsx"
)

// CellType is the value type of a decoded cell.
type CellType string

const (
	CellTypeString  CellType = "string"
	CellTypeNumber  CellType = "number"
	CellTypeBool    CellType = "bool"
	CellTypeDate    CellType = "date"
	CellTypeFormula CellType = "formula"
	CellTypeError   CellType = "error"
	CellTypeUnknown CellType = "unknown"
)

// Cell is one non-empty cell of a sheet.
type Cell struct {
	Ref     string   `json:"ref"`
	Row     int      `json:"row"`
	Col     int      `json:"col"`
	Type    CellType `json:"type"`
	Value   string   `json:"value"`
	Formula string   `json:"formula,omitempty"`
}

// Sheet is a decoded worksheet in workbook order.
type Sheet struct {
	Name       string   `json:"name"`
	Dimension  string   `json:"dimension,omitempty"`
	MergeCells []string `json:"merge_cells,omitempty"`
	Cells      []Cell   `json:"cells"`
}

// DefinedName is a workbook- or sheet-scoped name.
type DefinedName struct {
	Name     string `json:"name"`
	Scope    string `json:"scope,omitempty"`
	RefersTo string `json:"refers_to"`
}

// Workbook is the decoder's output. It is not trusted until NewWorkbookModel accepts it.
type Workbook struct {
	Name         string        `json:"name"`
	Locale       string        `json:"locale"`
	Timezone     string        `json:"timezone"`
	Sheets       []Sheet       `json:"sheets"`
	DefinedNames []DefinedName `json:"defined_names,omitempty"`
}

// WorkbookName derives the internal workbook name from a display name by removing one
// trailing ".xlsx". The match is case-sensitive and names without the suffix are kept.
func WorkbookName(displayName string) string {
	return strings.TrimSuffix(displayName, workbookSuffix)
}

// WorkbookModel is a queryable, consistency-checked workbook.
type WorkbookModel struct {
	wb     *Workbook
	sheets map[string]int
	cells  []map[string]int
}

// NewWorkbookModel checks wb for internal consistency and indexes it. Errors carry
// types.ErrTagDecodeFailure.
func NewWorkbookModel(wb *Workbook) (*WorkbookModel, error) {
	if wb == nil {
		return nil, goerr.New("workbook is nil", goerr.T(types.ErrTagDecodeFailure))
	}
	if wb.Locale == "" {
		return nil, goerr.New("workbook has no locale", goerr.T(types.ErrTagDecodeFailure))
	}
	if _, err := time.LoadLocation(wb.Timezone); err != nil || wb.Timezone == "" {
		return nil, goerr.New("workbook has an invalid timezone",
			goerr.T(types.ErrTagDecodeFailure),
			goerr.V("timezone", wb.Timezone))
	}
	if len(wb.Sheets) == 0 {
		return nil, goerr.New("workbook has no sheets", goerr.T(types.ErrTagDecodeFailure))
	}

	m := &WorkbookModel{
		wb:     wb,
		sheets: make(map[string]int, len(wb.Sheets)),
		cells:  make([]map[string]int, len(wb.Sheets)),
	}

	for i, sheet := range wb.Sheets {
		if sheet.Name == "" {
			return nil, goerr.New("sheet has no name",
				goerr.T(types.ErrTagDecodeFailure),
				goerr.V("index", i))
		}
		if _, dup := m.sheets[sheet.Name]; dup {
			return nil, goerr.New("duplicate sheet name",
				goerr.T(types.ErrTagDecodeFailure),
				goerr.V("sheet", sheet.Name))
		}
		m.sheets[sheet.Name] = i

		index := make(map[string]int, len(sheet.Cells))
		for j, cell := range sheet.Cells {
			col, row, ok := ParseCellRef(cell.Ref)
			if !ok {
				return nil, goerr.New("invalid cell reference",
					goerr.T(types.ErrTagDecodeFailure),
					goerr.V("sheet", sheet.Name),
					goerr.V("ref", cell.Ref))
			}
			if col != cell.Col || row != cell.Row {
				return nil, goerr.New("cell coordinates do not match reference",
					goerr.T(types.ErrTagDecodeFailure),
					goerr.V("sheet", sheet.Name),
					goerr.V("ref", cell.Ref),
					goerr.V("row", cell.Row),
					goerr.V("col", cell.Col))
			}
			if _, dup := index[cell.Ref]; dup {
				return nil, goerr.New("duplicate cell reference",
					goerr.T(types.ErrTagDecodeFailure),
					goerr.V("sheet", sheet.Name),
					goerr.V("ref", cell.Ref))
			}
			index[cell.Ref] = j
		}
		m.cells[i] = index
	}

	return m, nil
}

// Name returns the internal workbook name.
func (m *WorkbookModel) Name() string { return m.wb.Name }

// Locale returns the workbook locale.
func (m *WorkbookModel) Locale() string { return m.wb.Locale }

// Timezone returns the workbook timezone.
func (m *WorkbookModel) Timezone() string { return m.wb.Timezone }

// SheetNames returns sheet names in workbook order.
func (m *WorkbookModel) SheetNames() []string {
	names := make([]string, len(m.wb.Sheets))
	for i, sheet := range m.wb.Sheets {
		names[i] = sheet.Name
	}
	return names
}

// Cell looks up a cell by sheet name and reference such as "B3".
func (m *WorkbookModel) Cell(sheet, ref string) (Cell, bool) {
	i, ok := m.sheets[sheet]
	if !ok {
		return Cell{}, false
	}
	j, ok := m.cells[i][strings.ToUpper(ref)]
	if !ok {
		return Cell{}, false
	}
	return m.wb.Sheets[i].Cells[j], true
}

// CellCount returns the number of non-empty cells across all sheets.
func (m *WorkbookModel) CellCount() int {
	var n int
	for _, sheet := range m.wb.Sheets {
		n += len(sheet.Cells)
	}
	return n
}

// Bytes serializes the model. The output format is the JSON encoding of Workbook.
func (m *WorkbookModel) Bytes() ([]byte, error) {
	data, err := json.Marshal(m.wb)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to serialize workbook", goerr.T(types.ErrTagDecodeFailure))
	}
	return data, nil
}
