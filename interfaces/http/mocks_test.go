package http

import (
	"context"
	"strings"

	"crosspost/domain/dto"
	"crosspost/domain/model"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"
)

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) PublishVideo(ctx context.Context, account *model.Account, video model.VideoPayload, settings model.PublishSettings) model.PublishResult {
	args := m.Called(ctx, account, video, settings)
	return args.Get(0).(model.PublishResult)
}

func (m *MockPublisher) PublishSchedule(ctx context.Context, account *model.Account, schedule *model.Schedule, video model.VideoPayload) model.PublishResult {
	args := m.Called(ctx, account, schedule, video)
	return args.Get(0).(model.PublishResult)
}

type MockScheduleUsecase struct{ mock.Mock }

func (m *MockScheduleUsecase) RunSchedule(ctx context.Context, userID, scheduleID string) (model.PublishResult, error) {
	args := m.Called(ctx, userID, scheduleID)
	return args.Get(0).(model.PublishResult), args.Error(1)
}

func (m *MockScheduleUsecase) ProcessDue(ctx context.Context, batchSize, concurrency int) (int, error) {
	args := m.Called(ctx, batchSize, concurrency)
	return args.Int(0), args.Error(1)
}

func (m *MockScheduleUsecase) GetResult(ctx context.Context, userID, scheduleID string) (*model.PublishResult, error) {
	args := m.Called(ctx, userID, scheduleID)
	if r := args.Get(0); r != nil {
		return r.(*model.PublishResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAccountRepo struct{ mock.Mock }

func (m *MockAccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*model.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepo) UpsertByOpenID(ctx context.Context, account *model.Account) (string, error) {
	args := m.Called(ctx, account)
	return args.String(0), args.Error(1)
}

func (m *MockAccountRepo) UpdateTokens(ctx context.Context, id string, update model.AccountTokenUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

type MockTikTok struct{ mock.Mock }

func (m *MockTikTok) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	args := m.Called(ctx, refreshToken)
	if t := args.Get(0); t != nil {
		return t.(*oauth2.Token), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTikTok) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	args := m.Called(ctx, code, redirectURI)
	if t := args.Get(0); t != nil {
		return t.(*oauth2.Token), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTikTok) QueryCreatorInfo(ctx context.Context, accessToken string) (*model.CreatorCapabilities, error) {
	args := m.Called(ctx, accessToken)
	if c := args.Get(0); c != nil {
		return c.(*model.CreatorCapabilities), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTikTok) InitDirectPost(ctx context.Context, accessToken string, req *dto.TikTokVideoInitRequest) (*dto.TikTokVideoInitData, error) {
	args := m.Called(ctx, accessToken, req)
	if d := args.Get(0); d != nil {
		return d.(*dto.TikTokVideoInitData), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTikTok) FetchPublishStatus(ctx context.Context, accessToken, publishID string) (*dto.TikTokPublishStatusData, error) {
	args := m.Called(ctx, accessToken, publishID)
	if d := args.Get(0); d != nil {
		return d.(*dto.TikTokPublishStatusData), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTikTok) UploadVideo(ctx context.Context, uploadURL string, data []byte) error {
	return m.Called(ctx, uploadURL, data).Error(0)
}

type prefixCipher struct{}

func (prefixCipher) Encrypt(plain string) (string, error) { return "enc:" + plain, nil }

func (prefixCipher) Decrypt(enc string) (string, error) { return strings.TrimPrefix(enc, "enc:"), nil }
