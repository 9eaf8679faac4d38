package model

import "fmt"

// PlatformError is an error body returned by the TikTok API, kept verbatim.
type PlatformError struct {
	StatusCode int
	Code       string
	Message    string
	LogID      string
}

func (e *PlatformError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tiktok error %s (http %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("tiktok error %s (http %d): %s", e.Code, e.StatusCode, e.Message)
}

// Platform error codes the pipeline reacts to.
const (
	CodeOK                         = "ok"
	CodeAccessTokenInvalid         = "access_token_invalid"
	CodeUnauditedClientPrivateOnly = "unaudited_client_can_only_post_to_private_accounts"
	CodePrivacyLevelMismatch       = "privacy_level_option_mismatch"
	CodeSpamRiskTooManyPosts       = "spam_risk_too_many_posts"
	CodeSpamRiskUserBanned         = "spam_risk_user_banned_from_posting"
	CodeReachedActiveUserCap       = "reached_active_user_cap"
	CodeRateLimitExceeded          = "rate_limit_exceeded"
)
