package models

import (
	"time"
)

// ScanKind distinguishes identification scans from health checks.
type ScanKind string

const (
	ScanIdentify ScanKind = "identify"
	ScanHealth   ScanKind = "health"
)

// ScanFilter selects scans by health verdict, mirroring the All / Safe / Unsafe tabs.
type ScanFilter string

const (
	FilterAll       ScanFilter = "all"
	FilterHealthy   ScanFilter = "healthy"
	FilterUnhealthy ScanFilter = "unhealthy"
)

// ParseScanFilter maps user input to a ScanFilter. Unknown values yield false.
func ParseScanFilter(s string) (ScanFilter, bool) {
	switch ScanFilter(s) {
	case "", FilterAll:
		return FilterAll, true
	case FilterHealthy, "safe":
		return FilterHealthy, true
	case FilterUnhealthy, "unsafe":
		return FilterUnhealthy, true
	}
	return "", false
}

// Scan is a completed pipeline run kept in the local history.
type Scan struct {
	ID        string    `json:"id"`
	Kind      ScanKind  `json:"kind"`
	Name      string    `json:"name"`
	Details   string    `json:"details"`
	Health    *bool     `json:"health,omitempty"`
	ImageURL  string    `json:"image_url"` // media host locator of the classified image
	PhotoURI  string    `json:"photo_uri"` // device handle of the captured photo
	CreatedAt time.Time `json:"created_at"`
}

// Healthy applies the ClassificationResult health rule to a stored scan.
func (s *Scan) Healthy() bool {
	r := ClassificationResult{Name: s.Name, Health: s.Health}
	return r.Healthy()
}
