package model

import "time"

// FactError describes why a version fact could not be obtained.
type FactError string

const (
	FactOK          FactError = ""
	FactNotFound    FactError = "not_found"
	FactUnreachable FactError = "unreachable"
	FactRateLimited FactError = "rate_limited"
	FactMalformed   FactError = "malformed"
	FactCanceled    FactError = "canceled"
)

// PackageVersionFact is what the registry told us about one package.
type PackageVersionFact struct {
	Ecosystem          Ecosystem `json:"ecosystem"`
	Name               string    `json:"name"`
	LatestVersion      string    `json:"latest_version,omitempty"`
	Deprecated         bool      `json:"deprecated"`
	DeprecationMessage string    `json:"deprecation_message,omitempty"`
	ResolvedAt         time.Time `json:"resolved_at"`
	Attempts           int       `json:"attempts"`
	Error              FactError `json:"error,omitempty"`
	ErrorDetail        string    `json:"error_detail,omitempty"`
}

// Failed reports whether the fact carries an error state.
func (f PackageVersionFact) Failed() bool {
	return f.Error != FactOK
}
