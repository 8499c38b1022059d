package models

import "time"

// Descriptor is returned to callers after a transfer has been recorded.
type Descriptor struct {
	Token       string       `json:"token" yaml:"token"`
	Link        string       `json:"link" yaml:"link"`
	ArtifactRef string       `json:"qr" yaml:"qr"`
	ArchiveRef  string       `json:"zip" yaml:"zip"`
	Members     []string     `json:"members" yaml:"members"`
	Failed      []FailedFile `json:"failed,omitempty" yaml:"failed,omitempty"`
	Scan        *ScanReport  `json:"scan,omitempty" yaml:"scan,omitempty"`
	CreatedAt   time.Time    `json:"created_at" yaml:"created_at"`
}

// Transfer is the caller-facing view of a ledger entry.
type Transfer struct {
	Token       string    `json:"token" yaml:"token"`
	Link        string    `json:"link" yaml:"link"`
	ArchiveRef  string    `json:"zip" yaml:"zip"`
	ArtifactRef string    `json:"qr" yaml:"qr"`
	Contact     string    `json:"email,omitempty" yaml:"email,omitempty"`
	FileCount   int       `json:"file_count" yaml:"file_count"`
	FailedCount int       `json:"failed_count" yaml:"failed_count"`
	ArchiveSize int64     `json:"archive_size" yaml:"archive_size"`
	Checksum    string    `json:"checksum" yaml:"checksum"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Organized describes an uncatalogued categorized archive.
type Organized struct {
	ArchivePath string       `json:"zip_path" yaml:"zip_path"`
	ArchiveRef  string       `json:"download_token" yaml:"download_token"`
	Members     []string     `json:"members" yaml:"members"`
	Failed      []FailedFile `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Extraction describes an expanded archive.
type Extraction struct {
	OutputDir string   `json:"extracted_dir" yaml:"extracted_dir"`
	Files     []string `json:"files" yaml:"files"`
}
