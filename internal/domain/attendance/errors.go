package attendance

import "errors"

// Attendance domain errors
var (
	ErrEventNotFound           = errors.New("attendance event not found")
	ErrSummaryNotFound         = errors.New("monthly attendance summary not found")
	ErrUploadedTotalsNotFound  = errors.New("uploaded monthly totals not found")
	ErrLegacyAggregateNotFound = errors.New("legacy monthly aggregate not found")
	ErrInvalidStatus           = errors.New("invalid attendance status")
	ErrInvalidPeriod           = errors.New("invalid attendance period")
	ErrBatchTooLarge           = errors.New("attendance batch too large")
)
