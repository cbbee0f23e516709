package model

import "strings"

// UploadState tracks a version through the asynchronous upload.
type UploadState string

const (
	UploadPending   UploadState = "PENDING"
	UploadUploading UploadState = "UPLOADING"
	UploadReady     UploadState = "READY"
	UploadFailed    UploadState = "FAILED"
)

// PENDING -> FAILED only happens when the job could not be dispatched at all.
var uploadTransitions = map[UploadState][]UploadState{
	UploadPending:   {UploadUploading, UploadFailed},
	UploadFailed:    {UploadUploading},
	UploadUploading: {UploadReady, UploadFailed},
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to UploadState) bool {
	for _, next := range uploadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Claimable reports whether a worker may start an upload from s.
func (s UploadState) Claimable() bool {
	return CanTransition(s, UploadUploading)
}

// Terminal reports whether no transition leaves s.
func (s UploadState) Terminal() bool {
	return len(uploadTransitions[s]) == 0
}

// Reason is the API reason code for a version that is not READY.
func (s UploadState) Reason() string {
	return "upload_state_" + strings.ToLower(string(s))
}
