package response

const SuccessCode int32 = 200

var (
	ErrInvalidRequest    = newError(40000, "Invalid request")
	ErrAlreadyExists     = newError(40001, "Email already registered")
	ErrFaceVerifyFailed  = newError(40002, "Face verification failed:")
	ErrUnauthorized      = newError(40100, "Not authenticated")
	ErrInvalidPassword   = newError(40101, "Incorrect username or password")
	ErrTokenInvalid      = newError(40102, "Could not validate credentials")
	ErrForbidden         = newError(40300, "Permission denied")
	ErrNetworkNotAllowed = newError(40301, "Check-in is not allowed from this network")
	ErrNotFound          = newError(40400, "Not found")
	ErrTooManyRequests   = newError(42900, "Too many requests")
	ErrCheckInInProgress = newError(42901, "Attendance is already being marked, try again later")
	ErrServerInternal    = newError(50000, "Internal server error")
	ErrDatabase          = newError(50001, "Database error")
	ErrImageProcess      = newError(50002, "Failed to process image:")
	ErrStorage           = newError(50003, "Storage error")
	ErrServiceDown       = newError(50300, "Service unavailable")
)
