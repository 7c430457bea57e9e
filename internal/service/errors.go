package service

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/gema-edu-api/internal/apperror"
)

// Domain errors returned by services. Handlers translate them through apperror.
var (
	ErrInvalidCredentials = apperror.Authentication(apperror.CodeInvalidCredentials, "invalid email or password")
	ErrTwoFactorRequired  = apperror.Authentication(apperror.CodeTwoFactorRequired, "two-factor code required")
	ErrTokenExpired       = apperror.Authentication(apperror.CodeTokenExpired, "token expired")
	ErrTokenMalformed     = apperror.Authentication(apperror.CodeTokenInvalid, "token invalid")
	ErrRefreshInvalid     = apperror.Authentication(apperror.CodeRefreshInvalid, "refresh token invalid")
	ErrLoginBlocked       = apperror.RateLimited(apperror.CodeLoginBlocked, 0).WithMessage("too many failed login attempts")
	ErrEmailTaken         = apperror.New(apperror.KindConflict, "EMAIL_TAKEN", "email already registered")
	ErrUserNotFound       = apperror.New(apperror.KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrPermissionNotFound = apperror.New(apperror.KindNotFound, "PERMISSION_NOT_FOUND", "permission not found")
	ErrStudentNotFound    = apperror.New(apperror.KindNotFound, "STUDENT_NOT_FOUND", "student not found")
	ErrCourseNotFound     = apperror.New(apperror.KindNotFound, "COURSE_NOT_FOUND", "course not found")
	ErrInvalidArgument    = apperror.InvalidArgument("invalid argument")
	ErrStoreTimeout       = apperror.New(apperror.KindUnavailable, apperror.CodeStoreTimeout, "store temporarily unavailable, retry later")
)

// withStoreTimeout bounds a single persistent-store call.
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError reports deadline failures as ErrStoreTimeout so callers can retry
// instead of treating them as a denial.
func storeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrStoreTimeout.Wrap(err)
	}
	return err
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
