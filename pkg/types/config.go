// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// GrobidConfig holds connection settings and processing flags for the
// GROBID document-analysis service.
type GrobidConfig struct {
	// Server is the GROBID host (default "localhost").
	Server string `json:"server" yaml:"server"`

	// Port is the GROBID port (default "8070").
	Port string `json:"port" yaml:"port"`

	// APIKey is an optional key attached to each request, loaded from
	// .secrets/grobid-api-key when present.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout is the per-request HTTP timeout (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// SleepTime is the fixed delay before retrying a busy (HTTP 503)
	// response (default 5s).
	SleepTime time.Duration `json:"sleep_time" yaml:"sleep_time"`

	// MaxBusyRetries caps retries on busy responses (default 8). The
	// service signals busy routinely under load, so the cap is generous,
	// but retrying forever is not an option.
	MaxBusyRetries int `json:"max_busy_retries" yaml:"max_busy_retries"`

	// Processing flags forwarded to the fulltext endpoint.
	GenerateIDs            bool `json:"generate_ids" yaml:"generate_ids"`
	ConsolidateHeader      bool `json:"consolidate_header" yaml:"consolidate_header"`
	ConsolidateCitations   bool `json:"consolidate_citations" yaml:"consolidate_citations"`
	IncludeRawCitations    bool `json:"include_raw_citations" yaml:"include_raw_citations"`
	IncludeRawAffiliations bool `json:"include_raw_affiliations" yaml:"include_raw_affiliations"`
}

// DefaultGrobidConfig mirrors the service defaults used in batch runs.
func DefaultGrobidConfig() GrobidConfig {
	return GrobidConfig{
		Server:              "localhost",
		Port:                "8070",
		Timeout:             60 * time.Second,
		SleepTime:           5 * time.Second,
		MaxBusyRetries:      8,
		IncludeRawCitations: true,
	}
}

// ConvertConfig holds settings for the batch conversion drivers.
type ConvertConfig struct {
	// TempDir receives intermediate TEI XML files (default "temp").
	TempDir string `json:"temp_dir" yaml:"temp_dir"`

	// OutputDir receives release JSON files (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// LogDir receives the failure log (default "log").
	LogDir string `json:"log_dir" yaml:"log_dir"`

	// KeepTemp retains intermediate files after conversion.
	KeepTemp bool `json:"keep_temp" yaml:"keep_temp"`
}

// DefaultConvertConfig returns the directory layout used by the CLI.
func DefaultConvertConfig() ConvertConfig {
	return ConvertConfig{
		TempDir:   "temp",
		OutputDir: "output",
		LogDir:    "log",
	}
}

// StoreConfig holds settings for the converted-paper archive.
type StoreConfig struct {
	// Dir is the directory containing the SQLite database (default "archive").
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default maximum number of list results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
