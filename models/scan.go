package models

// ScanResult is the verdict for one file.
type ScanResult struct {
	File    string `json:"file" yaml:"file"`
	Clean   bool   `json:"clean" yaml:"clean"`
	Message string `json:"message" yaml:"message"`
}

// ScanReport aggregates per-file verdicts.
type ScanReport struct {
	Results  []ScanResult `json:"results" yaml:"results"`
	Total    int          `json:"total" yaml:"total"`
	Clean    int          `json:"clean" yaml:"clean"`
	Infected int          `json:"infected" yaml:"infected"`
}
