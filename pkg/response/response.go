package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	// Code carries the machine-readable rejection code of a gate refusal
	// (TOO_LATE, SHIFT_MISMATCH, ...); empty for plain errors.
	Code   string      `json:"code,omitempty"`
	Detail interface{} `json:"detail,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Rejected returns an error response carrying a rejection code and its
// optional detail payload.
func Rejected(statusCode int, code, err string, detail interface{}) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
		Code:       code,
		Detail:     detail,
	}
}
