// Package worker implements the Transfer Worker (spec §4.4, C5): given
// one Job from the scanner and a connected transport.RemoteTransport,
// it uploads each file under the host's lock-notation convention,
// resumes partial transfers, guards against duplicates already
// in-flight, and reports the outcome the burst coordinator and
// dispatcher need to decide what happens next. Grounded on
// original_source/src/fd/sf_ftp.c: lock_notation prefixing
// (p_initial_filename) and the append_offset/restart_file resume path.
// No keep-alive is sent while a Put is running.
package worker

import (
	"strings"

	"github.com/gokulkarthick/afd-sub000/internal/config"
)

// initialRemoteName returns the name a file is uploaded under before
// any rename-into-place (spec GLOSSARY "Lock policy"). The original's
// lock_notation is a configurable prefix/suffix string; DotVMS and
// Lockfile/Unique/Sequence are themselves distinct policies with their
// own naming rule rather than a notation string.
func initialRemoteName(h config.Host, finalName string) string {
	switch h.LockPolicy {
	case config.LockDot:
		return "." + finalName
	case config.LockDotVMS:
		return "." + finalName + ";1"
	case config.LockPostfix:
		return finalName + h.LockNotationSuffix
	case config.LockFile, config.LockUnique, config.LockSequence:
		// these policies upload under the final name directly: no
		// suffix is added and no rename follows. LockFile also writes
		// a companion lockfile (companionLockFileName below).
		return finalName
	default:
		return finalName
	}
}

// needsRename reports whether a successful upload must be followed by
// a remote Rename call to reach its final name.
func needsRename(policy config.LockPolicy) bool {
	switch policy {
	case config.LockDot, config.LockDotVMS, config.LockPostfix:
		return true
	default:
		return false
	}
}

// companionLockFileName returns the name of the zero-byte lockfile
// LockFile policy creates alongside the real upload, removed once the
// transfer completes (spec GLOSSARY "Lock policy" / LOCKFILE in
// original_source).
func companionLockFileName(h config.Host, finalName string) string {
	name := h.LockFileName
	if name == "" {
		name = finalName + ".lck"
	}
	return name
}

// busyRenamedName applies the host's rename-file-busy character when a
// duplicate upload of the same name is already in flight (spec §4.4
// duplicate-file guard: "renamed with a configurable character
// inserted", original_source's rename_file_busy option).
func busyRenamedName(h config.Host, finalName string, attempt int) string {
	ch := h.RenameFileBusyChar
	if ch == "" {
		ch = "_"
	}
	if attempt <= 1 {
		return finalName + ch
	}
	return finalName + strings.Repeat(ch, attempt)
}
