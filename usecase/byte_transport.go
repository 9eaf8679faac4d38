package usecase

import (
	"context"
	"fmt"

	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// byteTransport moves the video for FILE_UPLOAD: fetched whole into memory,
// then pushed as one chunk.
type byteTransport struct {
	source repository.IVideoSource
	tiktok repository.ITikTok
}

func (t *byteTransport) load(ctx context.Context, videoURL string) ([]byte, error) {
	if t.source == nil {
		return nil, fmt.Errorf("%w: no video source configured", ErrSourceFetch)
	}
	data, err := t.source.Fetch(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceFetch, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrSourceFetch)
	}
	return data, nil
}

func (t *byteTransport) push(ctx context.Context, uploadURL string, data []byte) error {
	if uploadURL == "" {
		return fmt.Errorf("%w: platform returned no upload url", ErrUpload)
	}
	if err := t.tiktok.UploadVideo(ctx, uploadURL, data); err != nil {
		return fmt.Errorf("%w: %w", ErrUpload, err)
	}
	logger.GetLogger().WithField("bytes", len(data)).Info("Video uploaded")
	return nil
}
