package repository

import "context"

// IVideoSource downloads source video bytes.
type IVideoSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// IVideoStorage mints time-limited read URLs for stored videos.
type IVideoStorage interface {
	SignedReadURL(ctx context.Context, objectKey string) (string, error)
}
