package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// publishSession is the per-call credential state. refreshed guards the
// single refresh allowed for one publish call.
type publishSession struct {
	account   *model.Account
	tokens    model.TokenPair
	refreshed bool
}

type tokenRefresher struct {
	tiktok  repository.ITikTok
	store   *credentialStore
	metrics repository.IPublishMetrics
}

func (r *tokenRefresher) refresh(ctx context.Context, sess *publishSession) error {
	sess.refreshed = true
	if sess.tokens.RefreshToken == "" {
		return fmt.Errorf("%w: account has no refresh token", ErrRefresh)
	}
	tok, err := r.tiktok.RefreshToken(ctx, sess.tokens.RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefresh, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: empty access token in response", ErrRefresh)
	}

	sess.tokens.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		sess.tokens.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		sess.tokens.ExpiresAt = &exp
	}
	if rexp, ok := tok.Extra("refresh_expires_at").(time.Time); ok && !rexp.IsZero() {
		rexp = rexp.UTC()
		sess.tokens.RefreshExpiresAt = &rexp
	}
	if r.metrics != nil {
		r.metrics.TokenRefreshed()
	}
	logger.GetLogger().WithField("account_id", sess.account.ID).Info("Access token refreshed")

	r.store.persist(ctx, sess.account.ID, sess.tokens)
	return nil
}

// withToken runs call with the current access token. When the platform rejects
// the token it refreshes once per session and retries the call once.
func (u *publishUsecase) withToken(ctx context.Context, sess *publishSession, call func(accessToken string) error) error {
	err := call(sess.tokens.AccessToken)
	if !isTokenInvalid(err) {
		return err
	}
	if sess.refreshed {
		return fmt.Errorf("%w: %w", ErrTokenRejected, err)
	}
	if rErr := u.refresher.refresh(ctx, sess); rErr != nil {
		return rErr
	}
	err = call(sess.tokens.AccessToken)
	if isTokenInvalid(err) {
		return fmt.Errorf("%w: %w", ErrTokenRejected, err)
	}
	return err
}

func isTokenInvalid(err error) bool {
	pe := asPlatformError(err)
	return pe != nil && pe.Code == model.CodeAccessTokenInvalid
}

func asPlatformError(err error) *model.PlatformError {
	var pe *model.PlatformError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}
