package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// poolDirName builds the unique per-job directory name. The original
// delete-log's on-disk format records pool directories by exactly this
// shape (original_source/src/log/delete_log.c's worked example:
// "426f44b4_23ed0_0" = hex-creation-time_hex-directory-id_sequence),
// so the scanner and the log writers agree on one naming convention.
func poolDirName(created time.Time, directoryID uint32, seq int) string {
	return fmt.Sprintf("%x_%x_%d", created.Unix(), directoryID, seq)
}

// createPoolDir makes a fresh, empty directory under poolRoot for one
// job's files, retrying with an incrementing sequence number on the
// rare collision (two jobs for the same directory admitted in the same
// second).
func createPoolDir(poolRoot string, created time.Time, directoryID uint32) (string, error) {
	for seq := 0; seq < 1000; seq++ {
		name := poolDirName(created, directoryID, seq)
		path := filepath.Join(poolRoot, name)
		if err := os.Mkdir(path, 0755); err == nil {
			return path, nil
		} else if !os.IsExist(err) {
			return "", fmt.Errorf("scanner: create pool dir %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("scanner: exhausted sequence numbers for pool dir under %s at %d", poolRoot, created.Unix())
}
