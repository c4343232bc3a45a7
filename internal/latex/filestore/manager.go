package filestore

import (
	"os"
	"path/filepath"
	"time"
)

func tempDir() string {
	if d := os.Getenv("EQRENDER_TEMP_DIR"); d != "" {
		return d
	}
	return "/tmp/eqrender-jobs"
}

// CreateJobDir creates {EQRENDER_TEMP_DIR}/{jobId}/ and returns the path.
func CreateJobDir(jobID string) (string, error) {
	dir := filepath.Join(tempDir(), jobID)
	return dir, os.MkdirAll(dir, 0750)
}

// JobDir returns the work directory path for a job without creating it.
func JobDir(jobID string) string {
	return filepath.Join(tempDir(), jobID)
}

// Cleanup removes the job directory entirely.
func Cleanup(jobID string) {
	dir := filepath.Join(tempDir(), jobID)
	_ = os.RemoveAll(dir)
}

// ScheduleCleanup runs Cleanup after the given duration.
func ScheduleCleanup(jobID string, after time.Duration) {
	time.AfterFunc(after, func() { Cleanup(jobID) })
}
