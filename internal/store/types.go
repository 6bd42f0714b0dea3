package store

import "time"

// Fragment is a cached build of one documentation file.
type Fragment struct {
	// Key is the content hash the fragment was built from.
	Key               string
	DocumentationPath string
	CompanionPath     string
	UnitImportPath    string
	// Data is the JSON encoding of the fragment.
	Data    string
	BuiltAt time.Time
}

// Example is one rendered example of a cached fragment.
type Example struct {
	ID          int64
	FragmentKey string
	Ordinal     int
	CamelKey    string
	Source      string
}
