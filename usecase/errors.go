package usecase

import (
	"context"
	"errors"
)

// Terminal error kinds of a publish attempt. Callers match them with errors.Is;
// platform bodies stay reachable through errors.As(*model.PlatformError).
var (
	ErrDecryption           = errors.New("stored token could not be decrypted")
	ErrRefresh              = errors.New("token refresh failed")
	ErrTokenRejected        = errors.New("access token rejected after refresh")
	ErrQuotaExceeded        = errors.New("creator has reached the daily post limit")
	ErrPostingDisabled      = errors.New("creator cannot post right now")
	ErrNoValidVisibility    = errors.New("no allowed privacy level for this creator")
	ErrSpamRiskTooManyPosts = errors.New("platform flagged too many posts from this account")
	ErrSpamRiskUserBanned   = errors.New("account is banned from posting")
	ErrActiveUserCap        = errors.New("app reached its active user cap")
	ErrRateLimited          = errors.New("platform rate limit exceeded, retry later")
	ErrSourceFetch          = errors.New("video source could not be fetched")
	ErrUpload               = errors.New("video upload failed")
	ErrPublishFailed        = errors.New("platform failed to publish the video")

	ErrScheduleNotRunnable = errors.New("schedule is not in a runnable state")
	ErrNoVideoSource       = errors.New("schedule has no video url or object key")
)

// IsRetryLater reports whether the failure is transient and the caller may re-enqueue.
func IsRetryLater(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// failureKind is the metric label for a terminal error.
func failureKind(err error) string {
	kinds := []struct {
		err  error
		kind string
	}{
		{ErrDecryption, "decryption"},
		{ErrRefresh, "refresh"},
		{ErrTokenRejected, "token_rejected"},
		{ErrQuotaExceeded, "quota_exceeded"},
		{ErrPostingDisabled, "posting_disabled"},
		{ErrNoValidVisibility, "no_valid_visibility"},
		{ErrSpamRiskTooManyPosts, "spam_too_many_posts"},
		{ErrSpamRiskUserBanned, "spam_user_banned"},
		{ErrActiveUserCap, "active_user_cap"},
		{ErrRateLimited, "rate_limited"},
		{ErrSourceFetch, "source_fetch"},
		{ErrUpload, "upload"},
		{ErrPublishFailed, "publish_failed"},
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	if asPlatformError(err) != nil {
		return "platform"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "abandoned"
	}
	return "other"
}
