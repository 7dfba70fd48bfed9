package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mercato-hq/mercato/internal/media"
	"github.com/mercato-hq/mercato/report"
)

// Pinger is anything with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Database checks backend connectivity.
func Database(db Pinger) Check {
	return Check{Name: "database", Run: func(ctx context.Context) (string, error) {
		if db == nil {
			return "", errors.New("database not configured")
		}
		if err := db.Ping(ctx); err != nil {
			return "", fmt.Errorf("ping: %w", err)
		}
		return "connected", nil
	}}
}

// Cache writes, reads back and deletes a short-lived key. A missing cache is a
// warning since reports are still computed without it.
func Cache(client *redis.Client) Check {
	return Check{Name: "cache", Run: func(ctx context.Context) (string, error) {
		if client == nil {
			return "", Warnf("cache not configured; reports are computed on every request")
		}
		key := "diagnostics:" + uuid.NewString()
		want := time.Now().UTC().Format(time.RFC3339Nano)
		if err := client.Set(ctx, key, want, time.Minute).Err(); err != nil {
			return "", fmt.Errorf("set: %w", err)
		}
		got, err := client.Get(ctx, key).Result()
		_ = client.Del(ctx, key).Err()
		if err != nil {
			return "", fmt.Errorf("get: %w", err)
		}
		if got != want {
			return "", errors.New("read back a different value")
		}
		return "round trip ok", nil
	}}
}

// PDF pings the Gotenberg service. Without it document exports fall back to
// plain text, so a missing configuration is a warning.
func PDF(client *report.Client) Check {
	return Check{Name: "pdf", Run: func(ctx context.Context) (string, error) {
		err := client.Ping(ctx)
		if errors.Is(err, report.ErrNotConfigured) {
			return "", Warnf("pdf service not configured; exports fall back to text")
		}
		if err != nil {
			return "", err
		}
		return "gotenberg healthy", nil
	}}
}

// ImageCodec encodes a test pattern, decodes it again and compresses it with
// the thumbnail settings.
func ImageCodec() Check {
	return Check{Name: "image_codec", Run: func(ctx context.Context) (string, error) {
		img := image.NewRGBA(image.Rect(0, 0, 320, 240))
		for y := 0; y < 240; y++ {
			for x := 0; x < 320; x++ {
				img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x40, A: 0xff})
			}
		}
		data, err := media.EncodeJPEG(img, media.DefaultQuality)
		if err != nil {
			return "", fmt.Errorf("encode: %w", err)
		}
		decoded, _, err := media.Decode(data)
		if err != nil {
			return "", fmt.Errorf("decode: %w", err)
		}
		if b := decoded.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
			return "", fmt.Errorf("decoded %dx%d, want 320x240", b.Dx(), b.Dy())
		}
		thumb, err := media.Thumbnail(ctx, data)
		if err != nil {
			return "", fmt.Errorf("thumbnail: %w", err)
		}
		return fmt.Sprintf("jpeg %s, thumbnail %dx%d", media.FormatBytes(int64(len(data))), thumb.Width, thumb.Height), nil
	}}
}

// Storage verifies the media store is writable.
func Storage(store media.Store) Check {
	return Check{Name: "media_storage", Run: func(ctx context.Context) (string, error) {
		if store == nil {
			return "", errors.New("media storage not configured")
		}
		if err := store.Ping(ctx); err != nil {
			return "", err
		}
		return "writable", nil
	}}
}

// DefaultChecks returns the standard self-test sequence.
func DefaultChecks(db Pinger, cache *redis.Client, pdf *report.Client, store media.Store) []Check {
	return []Check{
		Database(db),
		Cache(cache),
		PDF(pdf),
		ImageCodec(),
		Storage(store),
	}
}
