package excel

// ExcelConfig holds configuration for the workbook/CSV data source
type ExcelConfig struct {
	FilePath        string `json:"file_path" mapstructure:"file_path"`
	ControlSheet    string `json:"control_sheet" mapstructure:"control_sheet"`
	ExperimentSheet string `json:"experiment_sheet" mapstructure:"experiment_sheet"`
	ArmColumn       string `json:"arm_column" mapstructure:"arm_column"` // CSV only: long format
}

// DefaultExcelConfig returns the sheet layout of the course results workbook
func DefaultExcelConfig() ExcelConfig {
	return ExcelConfig{
		ControlSheet:    "Control",
		ExperimentSheet: "Experiment",
		ArmColumn:       "Arm",
	}
}
