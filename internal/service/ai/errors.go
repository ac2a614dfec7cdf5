package ai

// Provider steps reported in UpstreamError.Op.
const (
	OpUpload   = "upload"
	OpGenerate = "generate"
)

// UpstreamError wraps a failed provider call. Error returns the provider's
// message unchanged; Op names the step for logs and metrics.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	if e == nil || e.Err == nil {
		return "upstream error"
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Op: op, Err: err}
}
