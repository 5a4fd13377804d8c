package model

// SuccessResponse is the envelope for successful API responses
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope for failed API responses
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

// NewSuccessResponse creates a success envelope with an optional payload
func NewSuccessResponse(message string, data interface{}) SuccessResponse {
	return SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse creates an error envelope with an optional detail string
func NewErrorResponse(errMsg, detail string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error:   errMsg,
		Detail:  detail,
	}
}
