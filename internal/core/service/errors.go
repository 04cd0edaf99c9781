package service

// ServiceError carries an HTTP-ish status code alongside the message so
// handlers can map service failures without string matching.
type ServiceError struct {
	Code    int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func NewServiceError(code int, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}
