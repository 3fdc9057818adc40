package api

// Error codes carried in errorResponse.Code.
const (
	CodeInvalidUserID = "invalid_user_id"
	CodeUserNotFound  = "user_not_found"
	CodeNotReady      = "not_ready"
	CodeTimeout       = "timeout"
	CodeInternal      = "internal_error"
)
