package db

import "time"

// Setting is a string-keyed configuration row. Callers read the table
// through a typed settings struct rather than looking keys up ad hoc.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
