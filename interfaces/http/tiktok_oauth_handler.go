package http

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const stateTTL = 10 * time.Minute

type ITikTokOAuthHandler interface {
	GetAuthURL(ctx *gin.Context)
	Callback(ctx *gin.Context)
}

type TikTokOAuthConfig struct {
	ClientKey   string
	AuthURL     string
	RedirectURI string
	Scopes      []string
}

type pendingState struct {
	userID string
	expiry time.Time
}

type tiktokOAuthHandler struct {
	conf     TikTokOAuthConfig
	tiktok   repository.ITikTok
	accounts repository.IAccount
	cipher   repository.ICipher
	now      func() time.Time

	stateMu sync.Mutex
	states  map[string]pendingState
}

func NewTikTokOAuthHandler(conf TikTokOAuthConfig, tiktok repository.ITikTok, accounts repository.IAccount, cipher repository.ICipher) ITikTokOAuthHandler {
	return &tiktokOAuthHandler{
		conf:     conf,
		tiktok:   tiktok,
		accounts: accounts,
		cipher:   cipher,
		now:      time.Now,
		states:   map[string]pendingState{},
	}
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (h *tiktokOAuthHandler) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    h.conf.ClientKey,
		Endpoint:    oauth2.Endpoint{AuthURL: h.conf.AuthURL},
		RedirectURL: h.conf.RedirectURI,
		// TikTok expects a comma-separated scope list.
		Scopes: []string{strings.Join(h.conf.Scopes, ",")},
	}
}

// GetAuthURL builds the TikTok authorize URL for the signed-in user.
func (h *tiktokOAuthHandler) GetAuthURL(c *gin.Context) {
	if h.conf.ClientKey == "" || h.conf.RedirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tiktok oauth not configured"})
		return
	}
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	state := randomState()
	h.stateMu.Lock()
	h.purgeExpired()
	h.states[state] = pendingState{userID: userID, expiry: h.now().Add(stateTTL)}
	h.stateMu.Unlock()

	authURL := h.oauthConfig().AuthCodeURL(state, oauth2.SetAuthURLParam("client_key", h.conf.ClientKey))
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL, "state": state})
}

// Callback exchanges the code and stores the encrypted tokens on the account.
func (h *tiktokOAuthHandler) Callback(c *gin.Context) {
	lg := logger.GetLogger()
	if errCode := c.Query("error"); errCode != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errCode, "description": c.Query("error_description")})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	pending, ok := h.takeState(c.Query("state"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_state"})
		return
	}

	ctx := c.Request.Context()
	tok, err := h.tiktok.ExchangeCode(ctx, code, h.conf.RedirectURI)
	if err != nil {
		lg.WithField("error", err).Error("tiktok token exchange failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "token_exchange_failed"})
		return
	}
	openID, _ := tok.Extra("open_id").(string)
	if openID == "" {
		c.JSON(http.StatusBadGateway, gin.H{"error": "missing_open_id"})
		return
	}

	account := &model.Account{
		UserID: pending.userID,
		OpenID: openID,
	}
	account.Scopes, _ = tok.Extra("scope").(string)
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		account.ExpiresAt = &exp
	}
	if rexp, ok := tok.Extra("refresh_expires_at").(time.Time); ok && !rexp.IsZero() {
		rexp = rexp.UTC()
		account.RefreshExpiresAt = &rexp
	}
	// The username is only needed for post URLs; a failed probe is not fatal.
	if caps, err := h.tiktok.QueryCreatorInfo(ctx, tok.AccessToken); err == nil {
		account.Username = caps.Username
	} else {
		lg.WithField("error", err).Warn("creator info unavailable after oauth")
	}

	if account.AccessTokenEnc, err = h.cipher.Encrypt(tok.AccessToken); err != nil {
		lg.WithField("error", err).Error("encrypt access token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encrypt_failed"})
		return
	}
	if tok.RefreshToken != "" {
		enc, err := h.cipher.Encrypt(tok.RefreshToken)
		if err != nil {
			lg.WithField("error", err).Error("encrypt refresh token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "encrypt_failed"})
			return
		}
		account.RefreshTokenEnc = &enc
	}

	id, err := h.accounts.UpsertByOpenID(ctx, account)
	if err != nil {
		lg.WithField("error", err).Error("store tiktok account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_failed"})
		return
	}
	lg.WithField("account_id", id).WithField("user_id", pending.userID).Info("TikTok account connected")
	c.JSON(http.StatusOK, gin.H{"account_id": id, "open_id": openID, "username": account.Username})
}

func (h *tiktokOAuthHandler) takeState(state string) (pendingState, bool) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	p, ok := h.states[state]
	if !ok {
		return pendingState{}, false
	}
	delete(h.states, state)
	if h.now().After(p.expiry) {
		return pendingState{}, false
	}
	return p, true
}

func (h *tiktokOAuthHandler) purgeExpired() {
	now := h.now()
	for s, p := range h.states {
		if now.After(p.expiry) {
			delete(h.states, s)
		}
	}
}
