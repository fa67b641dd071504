package server

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	repo, err := NewRedisRepository("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, s
}

func repositories(t *testing.T) map[string]Repository {
	redisRepo, _ := setupTestRedis(t)
	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"redis":  redisRepo,
	}
}

func int64p(v int64) *int64 { return &v }

func TestRepositoryCRUD(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			id, err := repo.NextID(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), id)

			rec := Record{
				ID:         id,
				Type:       "thought",
				Content:    "重要任务",
				TopicName:  "work",
				Connect:    []int64{4},
				CreateTime: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
			}
			require.NoError(t, repo.Create(ctx, rec))

			got, err := repo.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, rec.Content, got.Content)
			assert.Equal(t, rec.TopicName, got.TopicName)
			assert.Equal(t, []int64{4}, got.Connect)
			assert.True(t, rec.CreateTime.Equal(got.CreateTime))

			got.Content = "会议记录"
			require.NoError(t, repo.Update(ctx, got))
			got, err = repo.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "会议记录", got.Content)

			require.NoError(t, repo.Delete(ctx, id))
			_, err = repo.Get(ctx, id)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, repo.Delete(ctx, id), ErrNotFound)
			assert.ErrorIs(t, repo.Update(ctx, got), ErrNotFound)
		})
	}
}

func TestRepositoryListAndChildren(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, r := range []Record{
				{ID: 3, Type: "solution", Content: "c", Parent: int64p(1)},
				{ID: 1, Type: "thought", Content: "a"},
				{ID: 2, Type: "thought", Content: "b", Parent: int64p(1)},
			} {
				require.NoError(t, repo.Create(ctx, r))
			}

			all, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})

			kids, err := repo.Children(ctx, 1)
			require.NoError(t, err)
			require.Len(t, kids, 2)
			assert.Equal(t, int64(2), kids[0].ID)
			assert.Equal(t, int64(3), kids[1].ID)

			kids, err = repo.Children(ctx, 2)
			require.NoError(t, err)
			assert.Empty(t, kids)
		})
	}
}

func TestMemoryRepositoryCopiesRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	rec := Record{ID: 1, Connect: []int64{2}, Parent: int64p(5)}
	require.NoError(t, repo.Create(ctx, rec))

	rec.Connect[0] = 9
	*rec.Parent = 9

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, got.Connect)
	assert.Equal(t, int64(5), *got.Parent)
}

func TestMemoryRepositoryNextIDSkipsCreated(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Create(ctx, Record{ID: 10}))
	id, err := repo.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
}

func TestNewRedisRepositoryBadURL(t *testing.T) {
	_, err := NewRedisRepository("not a url")
	assert.Error(t, err)
}

func TestRedisRepositoryPing(t *testing.T) {
	repo, _ := setupTestRedis(t)
	require.NoError(t, repo.Ping(context.Background()))
}

func TestRedisRepositoryKeys(t *testing.T) {
	repo, s := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, Record{ID: 7, Type: "topic", Content: "work"}))

	assert.True(t, s.Exists("bubblemind:node:7"))
	members, err := s.Members("bubblemind:nodes")
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, members)
}
