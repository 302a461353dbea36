// Package types defines the data structures shared across the treedump packages.
package types

// RecordKind classifies the body written for a single file record.
type RecordKind string

const (
	// RecordKindText marks a record whose body is the verbatim file content.
	RecordKindText RecordKind = "text"
	// RecordKindBinary marks a record whose file failed classification.
	RecordKindBinary RecordKind = "binary"
	// RecordKindUnreadable marks a text-classified file whose full read failed.
	RecordKindUnreadable RecordKind = "unreadable"
)

// Summary aggregates counters for one serialization run.
type Summary struct {
	Records            int
	Text               int
	Binary             int
	Unreadable         int
	Bytes              int64
	Tokens             int
	Model              string
	SkippedDirectories []string
}

// Add accounts for one emitted record.
func (summary *Summary) Add(kind RecordKind, size int64, tokens int) {
	summary.Records++
	switch kind {
	case RecordKindText:
		summary.Text++
		summary.Bytes += size
		summary.Tokens += tokens
	case RecordKindBinary:
		summary.Binary++
	case RecordKindUnreadable:
		summary.Unreadable++
	}
}
