package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "timetable:view:run-1:rooms", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "timetable:view:run-1:rooms", map[string]string{"a": "b"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "timetable:view:*"))
	require.NoError(t, repo.Close())
}

func TestCacheRepositorySetWithoutClientIsNoop(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	assert.NoError(t, repo.Set(context.Background(), "k", make(chan int), time.Minute))
}

func TestCacheRepositoryPingWithoutClient(t *testing.T) {
	assert.NoError(t, NewCacheRepository(nil, nil).Ping(context.Background()))
}
