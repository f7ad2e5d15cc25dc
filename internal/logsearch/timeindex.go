package logsearch

// searchTime returns the byte offset of the first record whose
// timestamp is >= target, or len(data) if every record precedes
// target. Grounded on spec §4.7 step 3's search_time: sample the first
// and last record's timestamp, then walk from whichever end is closer
// to target — a line-at-a-time linear probe, not a general bisection,
// because record lines vary in length so there's no fixed stride to
// bisect on.
func searchTime(data []byte, target int64) int {
	if len(data) == 0 {
		return 0
	}

	firstTS, ok := timestampAt(data, 0)
	if !ok {
		return 0
	}
	lastLineOff := lastLineStart(data)
	lastTS, ok := timestampAt(data, lastLineOff)
	if !ok {
		lastTS = firstTS
	}

	if target <= firstTS {
		return 0
	}
	if target > lastTS {
		return len(data)
	}

	// Walk from whichever end is nearer target, since the set of
	// candidate files is already mtime-filtered to a narrow window
	// (spec §4.7 step 1) — the probe is expected to be short.
	if target-firstTS <= lastTS-target {
		return scanForward(data, 0, target)
	}
	return scanBackward(data, lastLineOff, target)
}

func scanForward(data []byte, off int, target int64) int {
	for off < len(data) {
		ts, ok := timestampAt(data, off)
		if ok && ts >= target {
			return off
		}
		_, next := readLine(data, off)
		if next <= off {
			break
		}
		off = next
	}
	return len(data)
}

func scanBackward(data []byte, off int, target int64) int {
	best := len(data)
	for {
		ts, ok := timestampAt(data, off)
		if ok && ts >= target {
			best = off
		} else if ok {
			break
		}
		if off == 0 {
			break
		}
		off = prevLineStart(data, off)
	}
	return best
}

// lastLineStart finds the offset of the final non-empty line in data,
// tolerating a trailing newline left by the writer's last append.
func lastLineStart(data []byte) int {
	end := len(data)
	for end > 0 && data[end-1] == '\n' {
		end--
	}
	if end == 0 {
		return 0
	}
	i := end - 1
	for i > 0 && data[i-1] != '\n' {
		i--
	}
	return i
}

// prevLineStart returns the start offset of the line immediately
// before the one starting at off.
func prevLineStart(data []byte, off int) int {
	if off == 0 {
		return 0
	}
	i := off - 1 // data[off-1] is the previous line's trailing '\n'
	for i > 0 && data[i-1] != '\n' {
		i--
	}
	return i
}
