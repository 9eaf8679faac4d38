package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/infrastructure/logger"
)

// initState is a state of the publish initiation machine.
type initState string

const (
	initNotStarted    initState = "NOT_STARTED"
	initInitiating    initState = "INITIATING"
	initInitiated     initState = "INITIATED"
	initRejectedRetry initState = "REJECTED_RETRY"
	initFailed        initState = "FAILED_INIT"
)

const maxTitleRunes = 2200

// initiation is one run of the machine. tried holds every privacy level
// already submitted so a rejected level is never sent twice.
type initiation struct {
	state   initState
	privacy model.PrivacyLevel
	tried   map[model.PrivacyLevel]bool
	result  *dto.TikTokVideoInitData
	err     error
}

type initInput struct {
	caps      *model.CreatorCapabilities
	video     model.VideoPayload
	settings  model.PublishSettings
	mode      model.SourceMode
	videoSize int64
}

// initiate drives NOT_STARTED to INITIATED or FAILED_INIT.
func (u *publishUsecase) initiate(ctx context.Context, sess *publishSession, in initInput) (*dto.TikTokVideoInitData, model.PrivacyLevel, error) {
	m := &initiation{state: initNotStarted, tried: map[model.PrivacyLevel]bool{}}
	lg := logger.GetLogger().WithField("account_id", sess.account.ID).WithField("source_mode", in.mode)

	for {
		switch m.state {
		case initNotStarted:
			level, err := selectPrivacy(in.settings.PrivacyLevel, in.caps)
			if err != nil {
				m.fail(err)
				continue
			}
			if level != in.settings.PrivacyLevel {
				lg.WithField("requested", in.settings.PrivacyLevel).WithField("privacy_level", level).Info("Requested privacy level not allowed, using SELF_ONLY")
			}
			m.privacy = level
			m.state = initInitiating

		case initInitiating, initRejectedRetry:
			m.tried[m.privacy] = true
			req := buildInitRequest(in, m.privacy)
			var data *dto.TikTokVideoInitData
			err := u.withToken(ctx, sess, func(accessToken string) error {
				d, err := u.tiktok.InitDirectPost(ctx, accessToken, req)
				data = d
				return err
			})
			if err == nil {
				m.result = data
				m.state = initInitiated
				continue
			}
			lg.WithField("privacy_level", m.privacy).WithField("error", err).Warn("Publish initiation rejected")
			u.onRejection(ctx, m, err)

		case initInitiated:
			lg.WithField("publish_id", m.result.PublishID).WithField("privacy_level", m.privacy).Info("Publish initiated")
			return m.result, m.privacy, nil

		case initFailed:
			return nil, m.privacy, m.err
		}
	}
}

func (m *initiation) fail(err error) {
	m.err = err
	m.state = initFailed
}

// onRejection applies the escalation policy to a failed submission.
func (u *publishUsecase) onRejection(ctx context.Context, m *initiation, err error) {
	pe := asPlatformError(err)
	if pe == nil || errors.Is(err, ErrRefresh) || errors.Is(err, ErrTokenRejected) {
		m.fail(fmt.Errorf("initiate post: %w", err))
		return
	}
	switch pe.Code {
	case model.CodeUnauditedClientPrivateOnly, model.CodePrivacyLevelMismatch:
		if m.state == initInitiating && !m.tried[model.PrivacySelfOnly] {
			m.privacy = model.PrivacySelfOnly
			m.state = initRejectedRetry
			return
		}
		m.fail(fmt.Errorf("initiate post: %w", err))
	case model.CodeSpamRiskTooManyPosts:
		m.fail(fmt.Errorf("%w: %w", ErrSpamRiskTooManyPosts, err))
	case model.CodeSpamRiskUserBanned:
		m.fail(fmt.Errorf("%w: %w", ErrSpamRiskUserBanned, err))
	case model.CodeReachedActiveUserCap:
		m.fail(fmt.Errorf("%w: %w", ErrActiveUserCap, err))
	case model.CodeRateLimitExceeded:
		if sErr := u.sleep(ctx, u.cfg.RateLimitBackoff); sErr != nil {
			m.fail(fmt.Errorf("initiate post abandoned during rate limit backoff: %w", sErr))
			return
		}
		m.fail(fmt.Errorf("%w: %w", ErrRateLimited, err))
	default:
		m.fail(fmt.Errorf("initiate post: %w", err))
	}
}

// selectPrivacy keeps the requested level when the creator allows it,
// otherwise falls back to SELF_ONLY.
func selectPrivacy(requested model.PrivacyLevel, caps *model.CreatorCapabilities) (model.PrivacyLevel, error) {
	if requested.Valid() && caps.Allows(requested) {
		return requested, nil
	}
	if caps.Allows(model.PrivacySelfOnly) {
		return model.PrivacySelfOnly, nil
	}
	return "", fmt.Errorf("%w: requested %q, allowed %v", ErrNoValidVisibility, requested, caps.AllowedPrivacyLevels)
}

func buildInitRequest(in initInput, level model.PrivacyLevel) *dto.TikTokVideoInitRequest {
	s := in.settings
	cc := s.CommercialContent
	req := &dto.TikTokVideoInitRequest{
		PostInfo: dto.TikTokVideoPostInfo{
			Title:              composeCaption(in.video),
			PrivacyLevel:       string(level),
			DisableComment:     !s.AllowComment || in.caps.CommentDisabled,
			DisableDuet:        !s.AllowDuet || in.caps.DuetDisabled,
			DisableStitch:      !s.AllowStitch || in.caps.StitchDisabled,
			BrandContentToggle: cc.Enabled && cc.IsThirdPartyBrand,
			BrandOrganicToggle: cc.Enabled && cc.IsOwnBrand,
		},
		SourceInfo: dto.TikTokVideoSourceInfo{Source: string(in.mode)},
	}
	if in.mode == model.SourcePullFromURL {
		req.SourceInfo.VideoURL = in.video.URL
	} else {
		req.SourceInfo.VideoSize = in.videoSize
		req.SourceInfo.ChunkSize = in.videoSize
		req.SourceInfo.TotalChunkCount = 1
	}
	return req
}

// composeCaption joins title and description and appends hashtags not
// already present in the text.
func composeCaption(v model.VideoPayload) string {
	parts := make([]string, 0, 3)
	if t := strings.TrimSpace(v.Title); t != "" {
		parts = append(parts, t)
	}
	if d := strings.TrimSpace(v.Description); d != "" {
		parts = append(parts, d)
	}
	text := strings.Join(parts, "\n\n")

	present := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		if strings.HasPrefix(w, "#") && len(w) > 1 {
			present[strings.ToLower(w)] = struct{}{}
		}
	}
	tags := make([]string, 0, len(v.Hashtags))
	for _, h := range v.Hashtags {
		h = strings.TrimSpace(h)
		h = strings.TrimLeft(h, "#")
		if h == "" || strings.ContainsAny(h, " \t\n") {
			continue
		}
		tag := "#" + h
		if _, ok := present[strings.ToLower(tag)]; ok {
			continue
		}
		present[strings.ToLower(tag)] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) > 0 {
		if text != "" {
			text += "\n\n"
		}
		text += strings.Join(tags, " ")
	}

	runes := []rune(text)
	if len(runes) > maxTitleRunes {
		text = string(runes[:maxTitleRunes])
	}
	return text
}
