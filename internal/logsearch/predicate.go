package logsearch

import "path/filepath"

// SizeOp is a size comparator (spec §4.7: "whose file size <op> S").
type SizeOp int

const (
	SizeAny SizeOp = iota
	SizeLess
	SizeGreater
	SizeEqual
)

// Predicate composably filters records by name glob, size comparison,
// recipient host, and directory id (spec §4.7: "eight combinations" of
// these active/inactive). A zero-value Predicate matches everything.
type Predicate struct {
	NameGlob    string
	SizeOp      SizeOp
	SizeValue   int64
	Recipient   string
	DirectoryID *uint32
}

// Match reports whether rec satisfies every active clause of p.
func (p Predicate) Match(rec Record) bool {
	if p.Recipient != "" && rec.HostName != p.Recipient {
		return false
	}
	if p.NameGlob != "" {
		ok, err := filepath.Match(p.NameGlob, rec.FileName())
		if err != nil || !ok {
			return false
		}
	}
	if p.SizeOp != SizeAny {
		size, ok := rec.FileSize()
		if !ok {
			return false
		}
		switch p.SizeOp {
		case SizeLess:
			if !(size < p.SizeValue) {
				return false
			}
		case SizeGreater:
			if !(size > p.SizeValue) {
				return false
			}
		case SizeEqual:
			if size != p.SizeValue {
				return false
			}
		}
	}
	if p.DirectoryID != nil {
		dirID, ok := rec.DirectoryID()
		if !ok || dirID != *p.DirectoryID {
			return false
		}
	}
	return true
}
