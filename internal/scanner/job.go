// Package scanner implements the Directory Scanner (spec §4.3, C3 /
// "AMG" in the original): it polls watched directories, admits or ages
// out the files it finds, and moves admitted files into a freshly
// created unique pool directory before handing a Job off to the
// dispatcher. Grounded on original_source/src/amg/amg.c's description
// of the scan-move-message cycle and backend/local/local.go's
// directory-listing and os.Rename idiom for the move itself.
package scanner

import (
	"time"

	"github.com/gokulkarthick/afd-sub000/internal/config"
)

// FileEntry is one file admitted into a Job.
type FileEntry struct {
	Name string
	Size int64
}

// Job is a batch of files pulled from one Directory in a single scan
// cycle, ready for the dispatcher to pick up (spec §3 "the message
// name and directory name are the same, so FD needs no further
// information to get the files" — here carried explicitly as fields
// instead of relying on that naming coincidence).
type Job struct {
	DirectoryID uint32
	JobID       uint32
	PoolDir     string
	Files       []FileEntry
	Recipients  []config.Recipient
	CreatedAt   time.Time
}

// TotalBytes sums the admitted files' sizes.
func (j Job) TotalBytes() int64 {
	var total int64
	for _, f := range j.Files {
		total += f.Size
	}
	return total
}
