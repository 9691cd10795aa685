//go:build integration

package storage

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/otp"
	"campusvote/internal/platform/metrics"
	platformredis "campusvote/internal/platform/redis"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/sentinel"
	"campusvote/pkg/testutil/containers"
)

func TestRedisOTPStore(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() { _ = rc.Container.Terminate(ctx) })

	client, err := platformredis.New(ctx, rc.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := otp.NewRedisStore(client)

	t.Run("save find delete", func(t *testing.T) {
		rec := &otp.Record{Hash: []byte("hash"), IssuedAt: time.Now().UTC().Truncate(time.Second)}
		require.NoError(t, store.Save(ctx, "u1", otp.ChannelEmail, rec, time.Minute))

		got, err := store.Find(ctx, "u1", otp.ChannelEmail)
		require.NoError(t, err)
		assert.Equal(t, rec.Hash, got.Hash)

		require.NoError(t, store.Delete(ctx, "u1", otp.ChannelEmail))
		_, err = store.Find(ctx, "u1", otp.ChannelEmail)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("ttl expiry", func(t *testing.T) {
		rec := &otp.Record{Hash: []byte("hash"), IssuedAt: time.Now().UTC()}
		require.NoError(t, store.Save(ctx, "u2", otp.ChannelMobile, rec, time.Second))

		require.Eventually(t, func() bool {
			_, err := store.Find(ctx, "u2", otp.ChannelMobile)
			return err != nil
		}, 5*time.Second, 200*time.Millisecond)
	})

	t.Run("update preserves ttl and misses absent keys", func(t *testing.T) {
		rec := &otp.Record{Hash: []byte("hash"), IssuedAt: time.Now().UTC()}
		require.NoError(t, store.Save(ctx, "u3", otp.ChannelEmail, rec, time.Minute))

		rec.Attempts = 2
		require.NoError(t, store.Update(ctx, "u3", otp.ChannelEmail, rec))
		got, err := store.Find(ctx, "u3", otp.ChannelEmail)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Attempts)

		ttl, err := client.TTL(ctx, "otp:u3:email").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)

		err = store.Update(ctx, "missing", otp.ChannelEmail, rec)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestOTPServiceAgainstRedis(t *testing.T) {
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	t.Cleanup(func() { _ = rc.Container.Terminate(ctx) })

	client, err := platformredis.New(ctx, rc.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	svc := otp.NewService(otp.NewRedisStore(client), otp.Config{
		Length:   6,
		TTL:      time.Minute,
		Cooldown: time.Millisecond,
		MaxTries: 3,
	}, slog.New(slog.DiscardHandler), metrics.NewForTest())

	code, err := svc.Issue(ctx, "u1", otp.ChannelEmail)
	require.NoError(t, err)

	err = svc.Verify(ctx, "u1", otp.ChannelEmail, "000000")
	if code != "000000" {
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
	}

	require.NoError(t, svc.Verify(ctx, "u1", otp.ChannelEmail, code))
}
