package upload

import (
	"encoding/json"
	"time"
)

// Job asks a worker to upload the staged file of one version.
type Job struct {
	JobID      string    `json:"job_id"`
	VersionID  uint      `json:"version_id"`
	SourcePath string    `json:"source_path"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func (j Job) encode() (string, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJob(raw string) (Job, error) {
	var j Job
	err := json.Unmarshal([]byte(raw), &j)
	return j, err
}
