package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"abtest/domain/core"
	"abtest/domain/experiment"
	"abtest/internal"

	"github.com/xuri/excelize/v2"
)

const dateColumn = "Date"

// DataReader handles reading the daily results table from an xlsx workbook
// (one sheet per arm) or a long-format CSV file (one Arm column)
type DataReader struct {
	config   ExcelConfig
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(config ExcelConfig, logger *internal.Logger) *DataReader {
	if config.ControlSheet == "" {
		config.ControlSheet = DefaultExcelConfig().ControlSheet
	}
	if config.ExperimentSheet == "" {
		config.ExperimentSheet = DefaultExcelConfig().ExperimentSheet
	}
	if config.ArmColumn == "" {
		config.ArmColumn = DefaultExcelConfig().ArmColumn
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}

	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		fileType = "csv"
	}
	return &DataReader{config: config, fileType: fileType, logger: logger.With("excel")}
}

// Describe names the file being read
func (r *DataReader) Describe() string {
	return fmt.Sprintf("%s:%s", r.fileType, r.config.FilePath)
}

// Load reads the file and converts both arms into an experiment table
func (r *DataReader) Load(ctx context.Context) (experiment.Table, error) {
	if err := ctx.Err(); err != nil {
		return experiment.Table{}, err
	}

	sheets, err := r.ReadData()
	if err != nil {
		return experiment.Table{}, err
	}

	var table experiment.Table
	for _, sheet := range sheets {
		rows, err := r.toObservations(sheet)
		if err != nil {
			return experiment.Table{}, err
		}
		arm, err := experiment.ParseArm(sheet.Name)
		if err != nil {
			return experiment.Table{}, err
		}
		if arm == experiment.ArmControl {
			table.Control = append(table.Control, rows...)
		} else {
			table.Experiment = append(table.Experiment, rows...)
		}
	}

	if err := table.Validate(); err != nil {
		return experiment.Table{}, err
	}
	r.logger.Info("loaded %d control and %d experiment rows from %s",
		len(table.Control), len(table.Experiment), r.config.FilePath)
	return table, nil
}

// ReadData reads the raw sheets: Control and Experiment for xlsx, one
// partition per arm label for CSV
func (r *DataReader) ReadData() ([]SheetData, error) {
	r.logger.Debug("starting to read %s file: %s", r.fileType, r.config.FilePath)

	if _, err := os.Stat(r.config.FilePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.config.FilePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

func (r *DataReader) readExcelData() ([]SheetData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	var sheets []SheetData
	for _, name := range []string{r.config.ControlSheet, r.config.ExperimentSheet} {
		idx, err := f.GetSheetIndex(name)
		if err != nil || idx == -1 {
			return nil, core.NewDataShapeError("workbook has no %q sheet", name)
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		if len(rows) < 2 {
			return nil, core.NewDataShapeError("sheet %s must have a header row and at least one data row", name)
		}
		sheet := processRows(name, rows)
		sheet.Name = armLabel(name, r.config)
		sheets = append(sheets, sheet)
	}

	r.logger.Debug("workbook read in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)
	return sheets, nil
}

func (r *DataReader) readCSVData() ([]SheetData, error) {
	file, err := os.Open(r.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, core.NewDataShapeError("failed to read CSV file: %v", err)
	}
	if len(rows) < 2 {
		return nil, core.NewDataShapeError("CSV file must have a header row and at least one data row")
	}

	all := processRows(filepath.Base(r.config.FilePath), rows)
	armHeader, ok := findHeader(all.Headers, r.config.ArmColumn)
	if !ok {
		return nil, core.NewMissingColumnError(all.Name, r.config.ArmColumn)
	}

	byArm := map[experiment.Arm]*SheetData{
		experiment.ArmControl:    {Name: string(experiment.ArmControl), Headers: all.Headers},
		experiment.ArmExperiment: {Name: string(experiment.ArmExperiment), Headers: all.Headers},
	}
	for i, row := range all.Rows {
		arm, err := experiment.ParseArm(row[armHeader])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		byArm[arm].Rows = append(byArm[arm].Rows, row)
	}

	r.logger.Debug("CSV file read (%d rows)", len(all.Rows))
	return []SheetData{*byArm[experiment.ArmControl], *byArm[experiment.ArmExperiment]}, nil
}

// processRows converts raw string rows into header-keyed rows, skipping
// blank lines. Rows shorter than the header read as empty trailing cells.
func processRows(name string, rows [][]string) SheetData {
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	var dataRows []RawRowData
	for _, row := range rows[1:] {
		rowData := make(RawRowData, len(headers))
		blank := true
		for j, header := range headers {
			var cell string
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			if cell != "" {
				blank = false
			}
			rowData[header] = cell
		}
		if !blank {
			dataRows = append(dataRows, rowData)
		}
	}

	return SheetData{Name: name, Headers: headers, Rows: dataRows}
}

// toObservations maps a sheet onto daily observations. Every column must be
// present; Enrollments and Payments cells may be blank or NA.
func (r *DataReader) toObservations(sheet SheetData) ([]experiment.DailyObservation, error) {
	columns := make(map[string]string, len(experiment.Fields)+1)
	for _, want := range append([]string{dateColumn}, fieldNames()...) {
		header, ok := findHeader(sheet.Headers, want)
		if !ok {
			return nil, core.NewMissingColumnError(sheet.Name, want)
		}
		columns[want] = header
	}

	out := make([]experiment.DailyObservation, 0, len(sheet.Rows))
	for i, raw := range sheet.Rows {
		obs := experiment.DailyObservation{Date: raw[columns[dateColumn]]}
		for _, f := range experiment.Fields {
			cell := raw[columns[string(f)]]
			v, present, err := parseCount(cell)
			if err != nil {
				return nil, core.NewDataShapeError("%s row %d %s: %v", sheet.Name, i+2, f, err)
			}
			switch f {
			case experiment.FieldPageviews, experiment.FieldClicks:
				if !present {
					return nil, core.NewDataShapeError("%s row %d: %s is required", sheet.Name, i+2, f)
				}
				if f == experiment.FieldPageviews {
					obs.Pageviews = v
				} else {
					obs.Clicks = v
				}
			case experiment.FieldEnrollments:
				if present {
					obs.Enrollments = experiment.Count(v)
				}
			case experiment.FieldPayments:
				if present {
					obs.Payments = experiment.Count(v)
				}
			}
		}
		out = append(out, obs)
	}
	return out, nil
}

// parseCount reads an integral count. Blank, NA and NaN cells are missing.
func parseCount(cell string) (int64, bool, error) {
	switch strings.ToUpper(cell) {
	case "", "NA", "NAN", "N/A", "NULL":
		return 0, false, nil
	}
	if v, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return v, true, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false, fmt.Errorf("not a number: %q", cell)
	}
	if math.IsNaN(f) {
		return 0, false, nil
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("not an integral count: %q", cell)
	}
	return int64(f), true, nil
}

func findHeader(headers []string, want string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h, want) {
			return h, true
		}
	}
	return "", false
}

func fieldNames() []string {
	names := make([]string, len(experiment.Fields))
	for i, f := range experiment.Fields {
		names[i] = string(f)
	}
	return names
}

// armLabel maps a configured sheet name back to its arm
func armLabel(sheet string, config ExcelConfig) string {
	if sheet == config.ExperimentSheet {
		return string(experiment.ArmExperiment)
	}
	return string(experiment.ArmControl)
}
