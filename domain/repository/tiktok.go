package repository

import (
	"context"

	"crosspost/domain/dto"
	"crosspost/domain/model"

	"golang.org/x/oauth2"
)

// ITikTok is the TikTok Content Posting API. Errors reported by the platform
// are returned as *model.PlatformError.
type ITikTok interface {
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error)
	QueryCreatorInfo(ctx context.Context, accessToken string) (*model.CreatorCapabilities, error)
	InitDirectPost(ctx context.Context, accessToken string, req *dto.TikTokVideoInitRequest) (*dto.TikTokVideoInitData, error)
	FetchPublishStatus(ctx context.Context, accessToken, publishID string) (*dto.TikTokPublishStatusData, error)
	UploadVideo(ctx context.Context, uploadURL string, data []byte) error
}
