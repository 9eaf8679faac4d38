package usecase_test

import (
	"testing"

	"crosspost/domain/model"
	"crosspost/usecase"

	"github.com/stretchr/testify/assert"
)

func TestSourceResolver_Resolve(t *testing.T) {
	r := usecase.NewSourceResolver([]string{"cdn.example.com", " .Media.Example.org ", ""})

	tests := []struct {
		url  string
		want model.SourceMode
	}{
		{"https://cdn.example.com/a.mp4", model.SourcePullFromURL},
		{"https://eu.cdn.example.com/a.mp4?X-Amz-Signature=abc", model.SourcePullFromURL},
		{"https://CDN.EXAMPLE.COM:443/a.mp4", model.SourcePullFromURL},
		{"https://media.example.org/a.mp4", model.SourcePullFromURL},
		{"http://cdn.example.com/a.mp4", model.SourceFileUpload},
		{"https://evilcdn.example.com.attacker.net/a.mp4", model.SourceFileUpload},
		{"https://notcdn.example.com/a.mp4", model.SourceFileUpload},
		{"https://other.net/a.mp4", model.SourceFileUpload},
		{"ftp://cdn.example.com/a.mp4", model.SourceFileUpload},
		{"::not a url", model.SourceFileUpload},
		{"", model.SourceFileUpload},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.url))
		})
	}
}

func TestSourceResolver_EmptyAllowList(t *testing.T) {
	r := usecase.NewSourceResolver(nil)
	assert.Equal(t, model.SourceFileUpload, r.Resolve("https://cdn.example.com/a.mp4"))
}

func TestIsRetryLater(t *testing.T) {
	assert.True(t, usecase.IsRetryLater(usecase.ErrRateLimited))
	assert.False(t, usecase.IsRetryLater(usecase.ErrQuotaExceeded))
	assert.False(t, usecase.IsRetryLater(nil))
}
