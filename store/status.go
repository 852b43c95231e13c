package store

import "strings"

// Status is the lifecycle state of a tracked run.
type Status string

const (
	StatusNew      Status = "new"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
	StatusDeleted  Status = "deleted"
	// StatusUnknown absorbs any remote status word this service doesn't know.
	// Unknown never persists: the engine leaves the stored status untouched.
	StatusUnknown Status = "unknown"
)

// ParseStatus maps a raw remote status word onto the closed enum.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(s)) {
	case StatusNew:
		return StatusNew
	case StatusVerified:
		return StatusVerified
	case StatusRejected:
		return StatusRejected
	case StatusDeleted:
		return StatusDeleted
	default:
		return StatusUnknown
	}
}

// Terminal reports whether no further transitions or polling should occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusVerified, StatusRejected, StatusDeleted:
		return true
	default:
		return false
	}
}
