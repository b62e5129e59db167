package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidBranchSelection indicates the user has no branch at the requested index.
	ErrInvalidBranchSelection = errors.New("invalid branch selection")
	// ErrQueryFailed indicates a branch database was unreachable or rejected a report query.
	ErrQueryFailed = errors.New("report query failed")
	// ErrReportNotAllowed indicates the user's permissions do not cover a report.
	ErrReportNotAllowed = errors.New("report not allowed")
	// ErrSubscriptionExpired indicates the user's subscription has lapsed.
	ErrSubscriptionExpired = errors.New("subscription expired")
)
