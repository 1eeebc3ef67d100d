package storage

import (
	"context"

	"go.uber.org/zap"
)

// Assets removes stored files wherever they live: the local upload dir or the S3 media bucket.
// URLs pointing elsewhere (YouTube, external hosts) are left alone.
type Assets struct {
	local  *Local
	s3     *S3
	logger *zap.Logger
}

// NewAssets builds an Assets remover. s3 may be nil when mirroring is disabled.
func NewAssets(local *Local, s3 *S3, logger *zap.Logger) *Assets {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assets{local: local, s3: s3, logger: logger}
}

// Remove deletes the object behind u if this service owns it.
func (a *Assets) Remove(ctx context.Context, u string) error {
	if IsLocalPath(u) {
		return a.local.Remove(u)
	}
	if a.s3 != nil {
		if key, ok := a.s3.KeyFromURL(u); ok {
			a.logger.Debug("deleting mirrored object", zap.String("key", key))
			return a.s3.DeleteObject(ctx, key)
		}
	}
	return nil
}
