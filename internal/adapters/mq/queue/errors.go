package queue

import "errors"

// ErrRejected is returned by callers that could not enqueue a job.
var ErrRejected = errors.New("job rejected by queue")
