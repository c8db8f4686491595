package models

// Batch size bounds enforced before any side effect
const (
	MinBatchSize = 1
	MaxBatchSize = 5
)

// OutcomeStatus is the per-image result status
type OutcomeStatus string

const (
	OutcomeStatusSuccess OutcomeStatus = "success"
	OutcomeStatusError   OutcomeStatus = "error"
)

// BatchRequest is one submission of up to five encoded images. It lives only
// for the duration of a single orchestration call and is never persisted.
type BatchRequest struct {
	Images []string `json:"images" binding:"required"`
}

// ImageOutcome is the result of processing one input image. Outcome index i
// always corresponds to input index i.
type ImageOutcome struct {
	Status OutcomeStatus `json:"status"`
	Data   string        `json:"data,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// SuccessOutcome builds a success outcome carrying the processed image
func SuccessOutcome(data string) ImageOutcome {
	return ImageOutcome{Status: OutcomeStatusSuccess, Data: data}
}

// ErrorOutcome builds a failed outcome with an opaque reason
func ErrorOutcome(reason string) ImageOutcome {
	return ImageOutcome{Status: OutcomeStatusError, Error: reason}
}
