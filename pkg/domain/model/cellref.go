package model

const (
	// MaxColumns and MaxRows are the worksheet limits of the xlsx format
	MaxColumns = 16384
	MaxRows    = 1048576
)

// ParseCellRef splits an A1-style reference such as "B3" into its 1-based column and
// row. Only upper-case, non-absolute references within the worksheet limits are accepted.
func ParseCellRef(ref string) (col, row int, ok bool) {
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
		if i > 3 {
			return 0, 0, false
		}
	}
	if i == 0 || i == len(ref) || ref[i] == '0' {
		return 0, 0, false
	}

	for ; i < len(ref); i++ {
		if ref[i] < '0' || ref[i] > '9' {
			return 0, 0, false
		}
		row = row*10 + int(ref[i]-'0')
		if row > MaxRows {
			return 0, 0, false
		}
	}

	if col > MaxColumns {
		return 0, 0, false
	}
	return col, row, true
}
