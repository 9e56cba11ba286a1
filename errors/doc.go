// Package errors provides the coded error type shared by every livequery
// component.
//
// Fatal subscription failures are always delivered as *AppError values so a
// consumer can branch on the code without string matching:
//
//	if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodePatchApplication {
//	    // resubscribe from scratch
//	}
package errors
