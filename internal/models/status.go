package models

// Processing status shared by uploads and documents pipeline entries.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

func ValidProcessingStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}
