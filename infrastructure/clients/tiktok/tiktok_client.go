package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crosspost/domain/dto"
	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"

	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"
)

const (
	tokenPath         = "/v2/oauth/token/"
	creatorInfoPath   = "/v2/post/publish/creator_info/query/"
	videoInitPath     = "/v2/post/publish/video/init/"
	publishStatusPath = "/v2/post/publish/status/fetch/"

	maxResponseBytes = 1 << 20
)

// Config represents TikTok API client configuration
type Config struct {
	ClientKey    string
	ClientSecret string
	BaseURL      string
	Timeout      time.Duration
}

// Client talks to the TikTok Content Posting API.
type Client struct {
	clientKey    string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
}

// NewTikTokClient creates a new TikTok API client
func NewTikTokClient(config *Config) repository.ITikTok {
	return NewTikTokClientWithHTTP(config, &http.Client{Timeout: config.Timeout})
}

// NewTikTokClientWithHTTP uses the given http.Client, e.g. one pointed at httptest.
func NewTikTokClientWithHTTP(config *Config, httpClient *http.Client) *Client {
	return &Client{
		clientKey:    config.ClientKey,
		clientSecret: config.ClientSecret,
		baseURL:      strings.TrimRight(config.BaseURL, "/"),
		httpClient:   httpClient,
	}
}

// envelope is the common {data, error} response shape.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error dto.TikTokError `json:"error"`
}

// RefreshToken exchanges a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return c.requestToken(ctx, dto.TikTokTokenForm{
		ClientKey:    c.clientKey,
		ClientSecret: c.clientSecret,
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	})
}

// ExchangeCode exchanges an OAuth authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, error) {
	return c.requestToken(ctx, dto.TikTokTokenForm{
		ClientKey:    c.clientKey,
		ClientSecret: c.clientSecret,
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  redirectURI,
	})
}

func (c *Client) requestToken(ctx context.Context, form dto.TikTokTokenForm) (*oauth2.Token, error) {
	values, err := query.Values(form)
	if err != nil {
		return nil, fmt.Errorf("encode token form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()

	var tr dto.TikTokTokenResponse
	if jsonErr := json.Unmarshal(body, &tr); jsonErr != nil && resp.StatusCode/100 == 2 {
		return nil, fmt.Errorf("decode token response: %w", jsonErr)
	}
	if resp.StatusCode/100 != 2 || tr.Error != "" || tr.AccessToken == "" {
		code := tr.Error
		if code == "" {
			code = "http_" + strconv.Itoa(resp.StatusCode)
		}
		msg := tr.ErrorDescription
		if msg == "" && tr.Error == "" {
			msg = truncate(string(body), 500)
		}
		return nil, &model.PlatformError{StatusCode: resp.StatusCode, Code: code, Message: msg, LogID: tr.LogID}
	}

	now := time.Now().UTC()
	token := &oauth2.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}
	if tr.ExpiresIn > 0 {
		token.Expiry = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	extra := map[string]interface{}{
		"open_id": tr.OpenID,
		"scope":   tr.Scope,
	}
	if tr.RefreshExpiresIn > 0 {
		extra["refresh_expires_at"] = now.Add(time.Duration(tr.RefreshExpiresIn) * time.Second)
	}
	return token.WithExtra(extra), nil
}

// QueryCreatorInfo returns the posting capabilities of the token's creator.
func (c *Client) QueryCreatorInfo(ctx context.Context, accessToken string) (*model.CreatorCapabilities, error) {
	var info dto.TikTokCreatorInfo
	if err := c.postJSON(ctx, creatorInfoPath, accessToken, nil, &info); err != nil {
		return nil, err
	}
	levels := make([]model.PrivacyLevel, 0, len(info.PrivacyLevelOptions))
	for _, l := range info.PrivacyLevelOptions {
		levels = append(levels, model.PrivacyLevel(l))
	}
	canPost := true
	if info.CanPost != nil {
		canPost = *info.CanPost
	}
	return &model.CreatorCapabilities{
		DisplayName:             info.CreatorNickname,
		Username:                info.CreatorUsername,
		AllowedPrivacyLevels:    levels,
		MaxVideoPostDurationSec: info.MaxVideoPostDurationSec,
		DuetDisabled:            info.DuetDisabled,
		StitchDisabled:          info.StitchDisabled,
		CommentDisabled:         info.CommentDisabled,
		CanPost:                 canPost,
		MaxPostsReached:         info.MaxPostsReached,
	}, nil
}

// InitDirectPost starts a direct post. For FILE_UPLOAD the response carries the upload URL.
func (c *Client) InitDirectPost(ctx context.Context, accessToken string, req *dto.TikTokVideoInitRequest) (*dto.TikTokVideoInitData, error) {
	var data dto.TikTokVideoInitData
	if err := c.postJSON(ctx, videoInitPath, accessToken, req, &data); err != nil {
		return nil, err
	}
	if data.PublishID == "" {
		return nil, &model.PlatformError{StatusCode: http.StatusOK, Code: "missing_publish_id", Message: "init response carried no publish_id"}
	}
	return &data, nil
}

// FetchPublishStatus returns the processing status of a publish.
func (c *Client) FetchPublishStatus(ctx context.Context, accessToken, publishID string) (*dto.TikTokPublishStatusData, error) {
	var data dto.TikTokPublishStatusData
	if err := c.postJSON(ctx, publishStatusPath, accessToken, dto.TikTokPublishStatusRequest{PublishID: publishID}, &data); err != nil {
		return nil, err
	}
	if data.Status == "PUBLISH_COMPLETE" {
		data.Status = string(model.StatusPublished)
	}
	for _, id := range data.PublicalyAvailablePostID {
		data.PublicPostIDs = append(data.PublicPostIDs, strconv.FormatInt(id, 10))
	}
	return &data, nil
}

// UploadVideo PUTs the whole video as a single chunk.
func (c *Client) UploadVideo(ctx context.Context, uploadURL string, data []byte) error {
	size := len(data)
	if size == 0 {
		return fmt.Errorf("upload video: empty body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.ContentLength = int64(size)
	req.Header.Set("Content-Type", "video/mp4")
	req.Header.Set("Content-Length", strconv.Itoa(size))
	req.Header.Set("Content-Range", fmt.Sprintf("bytes 0-%d/%d", size-1, size))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request: %w", err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return &model.PlatformError{StatusCode: resp.StatusCode, Code: "upload_failed", Message: truncate(string(body), 500)}
	}
	logger.GetLogger().WithField("bytes", size).Debug("tiktok upload accepted")
	return nil
}

func (c *Client) postJSON(ctx context.Context, path, accessToken string, payload interface{}, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()

	var env envelope
	jsonErr := json.Unmarshal(body, &env)
	if jsonErr != nil {
		if resp.StatusCode/100 == 2 {
			return fmt.Errorf("decode %s response: %w", path, jsonErr)
		}
		return &model.PlatformError{StatusCode: resp.StatusCode, Code: "http_" + strconv.Itoa(resp.StatusCode), Message: truncate(string(body), 500)}
	}
	if resp.StatusCode/100 != 2 || (env.Error.Code != "" && env.Error.Code != model.CodeOK) {
		code := env.Error.Code
		if code == "" || code == model.CodeOK {
			code = "http_" + strconv.Itoa(resp.StatusCode)
		}
		return &model.PlatformError{StatusCode: resp.StatusCode, Code: code, Message: env.Error.Message, LogID: env.Error.LogID}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
