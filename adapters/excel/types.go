package excel

// RawRowData represents a row of raw sheet data as header -> cell text
type RawRowData map[string]string

// SheetData represents one sheet (or one CSV partition) as read from disk
type SheetData struct {
	Name    string       // sheet name or arm label
	Headers []string     // column headers, trimmed
	Rows    []RawRowData // data rows
}
