package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"crosspost/domain/dto"
	"crosspost/domain/model"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"
)

type MockTikTok struct {
	mock.Mock
}

func (m *MockTikTok) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockTikTok) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	args := m.Called(ctx, code, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oauth2.Token), args.Error(1)
}

func (m *MockTikTok) QueryCreatorInfo(ctx context.Context, accessToken string) (*model.CreatorCapabilities, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreatorCapabilities), args.Error(1)
}

func (m *MockTikTok) InitDirectPost(ctx context.Context, accessToken string, req *dto.TikTokVideoInitRequest) (*dto.TikTokVideoInitData, error) {
	args := m.Called(ctx, accessToken, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TikTokVideoInitData), args.Error(1)
}

func (m *MockTikTok) FetchPublishStatus(ctx context.Context, accessToken, publishID string) (*dto.TikTokPublishStatusData, error) {
	args := m.Called(ctx, accessToken, publishID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TikTokPublishStatusData), args.Error(1)
}

func (m *MockTikTok) UploadVideo(ctx context.Context, uploadURL string, data []byte) error {
	args := m.Called(ctx, uploadURL, data)
	return args.Error(0)
}

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountRepo) UpsertByOpenID(ctx context.Context, account *model.Account) (string, error) {
	args := m.Called(ctx, account)
	return args.String(0), args.Error(1)
}

func (m *MockAccountRepo) UpdateTokens(ctx context.Context, id string, update model.AccountTokenUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

type MockScheduleRepo struct {
	mock.Mock
}

func (m *MockScheduleRepo) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Schedule, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepo) ClaimByID(ctx context.Context, id string, now time.Time) (*model.Schedule, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Schedule), args.Error(1)
}

func (m *MockScheduleRepo) RecordOutcome(ctx context.Context, id string, outcome model.ScheduleOutcome) error {
	args := m.Called(ctx, id, outcome)
	return args.Error(0)
}

type MockVideoSource struct {
	mock.Mock
}

func (m *MockVideoSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockVideoStorage struct {
	mock.Mock
}

func (m *MockVideoStorage) SignedReadURL(ctx context.Context, objectKey string) (string, error) {
	args := m.Called(ctx, objectKey)
	return args.String(0), args.Error(1)
}

type MockPublishCache struct {
	mock.Mock
}

func (m *MockPublishCache) SetResult(ctx context.Context, key string, result model.PublishResult, ttl time.Duration) error {
	args := m.Called(ctx, key, result, ttl)
	return args.Error(0)
}

func (m *MockPublishCache) GetResult(ctx context.Context, key string) (*model.PublishResult, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PublishResult), args.Error(1)
}

type MockPublishEvents struct {
	mock.Mock
}

func (m *MockPublishEvents) PublishOutcome(ctx context.Context, evt model.PublishEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

type MockPublishMetrics struct {
	mock.Mock
}

func (m *MockPublishMetrics) PublishSucceeded(status string) { m.Called(status) }
func (m *MockPublishMetrics) PublishFailed(kind string)      { m.Called(kind) }
func (m *MockPublishMetrics) TokenRefreshed()                { m.Called() }
func (m *MockPublishMetrics) AttemptDuration(d time.Duration) {
	m.Called(d)
}

// prefixCipher "encrypts" by prefixing; anything without the prefix fails to decrypt.
type prefixCipher struct{}

func (prefixCipher) Encrypt(plain string) (string, error) { return "enc:" + plain, nil }

func (prefixCipher) Decrypt(enc string) (string, error) {
	if !strings.HasPrefix(enc, "enc:") {
		return "", errors.New("cipher: message authentication failed")
	}
	return strings.TrimPrefix(enc, "enc:"), nil
}

// sleepRecorder records every requested sleep instead of waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

func (s *sleepRecorder) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.sleeps {
		if v == d {
			n++
		}
	}
	return n
}
