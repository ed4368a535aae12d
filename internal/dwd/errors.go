package dwd

import "errors"

// Error taxonomy for the retrieval pipeline. Callers distinguish failure
// classes with errors.Is; the REST layer maps them to status codes.
var (
	// ErrDataLoad indicates the local station reference file is missing or
	// malformed. Load-time errors abort startup.
	ErrDataLoad = errors.New("reference data unreadable")

	// ErrNotFound indicates an unknown station code or a remote archive that
	// does not exist for the requested station.
	ErrNotFound = errors.New("not found")

	// ErrNetwork indicates a transport failure: connection error, truncated
	// download, or a non-success status from the remote server.
	ErrNetwork = errors.New("network failure")

	// ErrFormat indicates a corrupt archive or an archive without the
	// expected data table.
	ErrFormat = errors.New("malformed archive")
)
