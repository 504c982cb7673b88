package pipeline

import "errors"

// ErrInvalidWorkerCount is wrapped by the error New returns when asked to
// build a Pipeline with fewer than one worker.
var ErrInvalidWorkerCount = errors.New("invalid worker count")

// ErrPipelineEnded is returned by Add once End has been called.
var ErrPipelineEnded = errors.New("pipeline: Add called after End")
