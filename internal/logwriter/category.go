// Package logwriter implements the Structured Logs (spec §4.2, C2):
// append-only record streams written through per-category channels to
// dedicated log-writer goroutines that rotate files by wall-clock
// interval. Grounded on original_source/log/input_log.c,
// src/log/delete_log.c, and log/receive_log.c — the same
// select-loop-plus-rotation shape, translated from a FIFO-reading C
// main() into a goroutine reading a Go channel (spec §9: "global
// mutable state becomes an explicitly passed Context").
package logwriter

import "fmt"

// Category is one of the AFD record streams, each rotated independently.
type Category string

const (
	CategorySystem         Category = "system"
	CategoryTransfer       Category = "transfer"
	CategoryTransferDebug  Category = "transfer_debug"
	CategoryReceive        Category = "receive"
	CategoryInput          Category = "input"
	CategoryOutput         Category = "output"
	CategoryDelete         Category = "delete"
)

// dedupCategories are the categories where an identical consecutive
// payload is coalesced into a "[repeated N times]" summary (spec §4.2).
var dedupCategories = map[Category]bool{
	CategoryTransfer: true,
	CategoryReceive:  true,
}

func (c Category) dedups() bool { return dedupCategories[c] }

// fileNamePrefix returns the on-disk base name for a category, e.g.
// "transfer" -> "transfer_log". Matches original_source's *_BUFFER_FILE
// naming convention (INPUT_BUFFER_FILE, etc.).
func (c Category) fileNamePrefix() string {
	return fmt.Sprintf("%s_log", c)
}
