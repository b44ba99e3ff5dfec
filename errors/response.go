package errors

// ErrorResponse is the JSON error envelope returned by the stream server.
// The "msg" key matches what search backends report, so clients read errors
// from either kind of server the same way.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Msg       string         `json:"msg"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse renders e for the wire. The cause is included in msg when set.
func (e *AppError) ToResponse() ErrorResponse {
	body := ErrorBody{
		Code:      e.Code,
		Msg:       e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}
	if e.Cause != nil {
		body.Msg = e.Error()
	}
	return ErrorResponse{Error: body}
}
