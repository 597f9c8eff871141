// Package core defines the cell and row model and the scan protocol shared
// by every connector.
package core

import "context"

// Connector is the scan protocol every foreign-table connector implements.
//
// A scan is BeginScan, then IterScan until it reports no row, then EndScan.
// A connector runs one scan at a time; BeginScan on a connector with an
// open scan ends that scan first.
type Connector interface {
	// Metadata
	Name() string
	Version() string

	// BeginScan validates columns and options and prepares a scan. No
	// record is fetched until the first IterScan.
	BeginScan(ctx context.Context, columns []Column, hints ScanHints, options map[string]string) error
	// IterScan returns the next row. ok is false at end of stream.
	IterScan(ctx context.Context) (row Row, ok bool, err error)
	// EndScan releases the scan. It is safe to call more than once.
	EndScan() error

	// ValidateOptions checks catalog options given as name=value strings.
	ValidateOptions(options []string, scope Scope) error
}

// OptionSpec describes one catalog option a connector understands.
type OptionSpec struct {
	Name        string `json:"name"`
	Scope       Scope  `json:"scope"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}
