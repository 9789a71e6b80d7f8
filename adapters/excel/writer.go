package excel

import (
	"encoding/csv"
	"os"

	"abtest/domain/experiment"

	"github.com/xuri/excelize/v2"
)

func headerRow() []string {
	return append([]string{dateColumn}, fieldNames()...)
}

// WriteXLSX writes the table as a workbook with one sheet per arm. Missing
// counts are left as blank cells.
func WriteXLSX(path string, table experiment.Table) error {
	return WriteXLSXWithConfig(path, table, DefaultExcelConfig())
}

// WriteXLSXWithConfig writes the table using the configured sheet names
func WriteXLSXWithConfig(path string, table experiment.Table, config ExcelConfig) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", config.ControlSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(config.ExperimentSheet); err != nil {
		return err
	}

	for _, arm := range []experiment.Arm{experiment.ArmControl, experiment.ArmExperiment} {
		sheet := config.ControlSheet
		if arm == experiment.ArmExperiment {
			sheet = config.ExperimentSheet
		}

		for i, h := range headerRow() {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return err
			}
		}

		for r, obs := range table.Rows(arm) {
			rowIdx := r + 2
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			if err := f.SetCellValue(sheet, cell, obs.Date); err != nil {
				return err
			}
			for c, field := range experiment.Fields {
				v, ok := obs.Count(field)
				if !ok {
					continue
				}
				cell, _ := excelize.CoordinatesToCellName(c+2, rowIdx)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
		}
	}

	f.SetActiveSheet(0)
	return f.SaveAs(path)
}

// WriteCSV writes the table in long format with a leading Arm column.
// Missing counts are written as NA.
func WriteCSV(path string, table experiment.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(append([]string{DefaultExcelConfig().ArmColumn}, headerRow()...)); err != nil {
		return err
	}
	for _, arm := range []experiment.Arm{experiment.ArmControl, experiment.ArmExperiment} {
		for _, obs := range table.Rows(arm) {
			if err := w.Write(append([]string{string(arm)}, obs.Record()...)); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}
