package core

// error_messages.go maps technical errors to operator-facing messages with
// stable codes. Codes are quoted in the failure email, the run history and
// HTTP error bodies so an operator can look a failure up without reading
// stack traces.
//
// # Document store (MNG001-MNG099)
//
//	MNG001 - Server selection failed: no reachable MongoDB server
//	MNG002 - Authentication failed
//
// # Staging files (FILE001-FILE099)
//
//	FILE001 - Staging file missing (the extract step did not write one)
//	FILE002 - Invalid CSV
//	FILE003 - Empty staging file
//
// # Cleaning (CLN001-CLN099)
//
//	CLN001 - Unknown dataset
//	CLN002 - Invalid cleaning operation
//
// # Quality (QLT001-QLT099)
//
//	QLT001 - Missing values above threshold
//
// # Notification (NTF001-NTF099)
//
//	NTF001 - SMTP delivery failed
//
// # Runs (RUN001-RUN099)
//
//	RUN001 - Another run is in progress
//	RUN002 - Run cancelled
//	RUN003 - Run timed out
//	RUN004 - Unknown step
//	RUN005 - Run not found

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStagingFileMissing is returned when a step's input file does not exist.
	ErrStagingFileMissing = errors.New("staging file not found")

	// ErrEmptyFile is returned for a staging file without a header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrUnknownDataset is returned when no dataset is registered under a key.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrInvalidOperation is returned for malformed cleaning operations.
	ErrInvalidOperation = errors.New("invalid cleaning operation")

	// ErrQualityGate is returned when the cleaned file has too many missing values.
	ErrQualityGate = errors.New("missing values above threshold")

	// ErrUnknownStep is returned for step IDs outside StepOrder.
	ErrUnknownStep = errors.New("unknown step")

	// ErrRunNotFound is returned by history lookups.
	ErrRunNotFound = errors.New("run not found")
)

// UserMessage contains an operator-facing error message.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages are checked with errors.Is before falling back to patterns.
var sentinelMessages = []sentinelMessage{
	{ErrStagingFileMissing, UserMessage{"Staging file not found", "Run the extract step first and check DATA_DIR", "FILE001"}},
	{ErrEmptyFile, UserMessage{"Staging file is empty", "Check that the source collection has documents", "FILE003"}},
	{ErrUnknownDataset, UserMessage{"Unknown dataset", "Check DATASET and RULES_FILE", "CLN001"}},
	{ErrInvalidOperation, UserMessage{"Invalid cleaning operation", "Fix the operation in RULES_FILE", "CLN002"}},
	{ErrQualityGate, UserMessage{"Too many missing values after cleaning", "Inspect the cleaned file or raise QUALITY_MAX_MISSING", "QLT001"}},
	{ErrRunInProgress, UserMessage{"Another run is in progress", "Wait for the active run to finish", "RUN001"}},
	{context.Canceled, UserMessage{"Run was cancelled", "Start a new run when ready", "RUN002"}},
	{context.DeadlineExceeded, UserMessage{"Run timed out", "Raise PIPELINE_TIMEOUT or check the document store", "RUN003"}},
	{ErrUnknownStep, UserMessage{"Unknown step", "Use one of: " + strings.Join(stepNames(), ", "), "RUN004"}},
	{ErrRunNotFound, UserMessage{"Run not found", "Check the run ID", "RUN005"}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns match driver and SMTP errors that carry no sentinel.
var errorPatterns = []errorPattern{
	{"server selection error", UserMessage{"Unable to reach MongoDB", "Check MONGO_URI and that the server is running", "MNG001"}},
	{"connection refused", UserMessage{"Unable to reach MongoDB", "Check MONGO_URI and that the server is running", "MNG001"}},
	{"authentication failed", UserMessage{"MongoDB authentication failed", "Check the credentials in MONGO_URI", "MNG002"}},
	{"invalid csv", UserMessage{"Staging file is not a valid CSV", "Delete the staging files and rerun extract", "FILE002"}},
	{"smtp", UserMessage{"Failed to send notification email", "Check SMTP settings and EMAIL_TO", "NTF001"}},
	{"send email", UserMessage{"Failed to send notification email", "Check SMTP settings and EMAIL_TO", "NTF001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-facing message.
// Returns an empty UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
