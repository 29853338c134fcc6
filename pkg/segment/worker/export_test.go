package worker

import "time"

func OverloadCloseTimeout(overload time.Duration) func() {
	closeTimeoutRef := closeTimeout
	closeTimeout = overload
	return func() { closeTimeout = closeTimeoutRef }
}
