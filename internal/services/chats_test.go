package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/petermazzocco/go-dashboard/internal/logger"
	"github.com/petermazzocco/go-dashboard/internal/testutil"
	"github.com/petermazzocco/go-dashboard/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDashboardChat(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chatter")

	none, err := f.chats.DashboardChat(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	chat, existed, err := f.chats.EnsureDashboardChat(f.ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, DashboardChatName, chat.Name)
	assert.Equal(t, models.ChatTypeSolo, chat.Type)
	assert.Equal(t, "gpt-test", chat.CurrentModel)

	again, existed, err := f.chats.EnsureDashboardChat(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, chat.ID, again.ID)
}

func TestOwned(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "owner")
	other := testutil.SeedUser(t, f.db, "other")
	chat, _, err := f.chats.EnsureDashboardChat(f.ctx, u.ID)
	require.NoError(t, err)

	_, err = f.chats.Owned(f.ctx, chat.ID, u.ID)
	assert.NoError(t, err)
	_, err = f.chats.Owned(f.ctx, chat.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveUserMessage_Dedupe(t *testing.T) {
	f := newFixture(t)
	u := testutil.SeedUser(t, f.db, "chatter")
	chat, _, err := f.chats.EnsureDashboardChat(f.ctx, u.ID)
	require.NoError(t, err)

	saved, err := f.chats.SaveUserMessage(f.ctx, chat.ID, u.ID, "hello")
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = f.chats.SaveUserMessage(f.ctx, chat.ID, u.ID, "hello")
	require.NoError(t, err)
	assert.False(t, saved, "duplicate inside the window")

	saved, err = f.chats.SaveUserMessage(f.ctx, chat.ID, u.ID, "something else")
	require.NoError(t, err)
	assert.True(t, saved)

	// Once the first copy is older than the window it may be sent again.
	require.NoError(t, f.db.Model(&models.ChatMessage{}).
		Where("content = ?", "hello").
		UpdateColumn("timestamp", time.Now().Add(-2*DuplicateMessageWindow)).Error)
	saved, err = f.chats.SaveUserMessage(f.ctx, chat.ID, u.ID, "hello")
	require.NoError(t, err)
	assert.True(t, saved)

	_, err = f.chats.SaveAssistantMessage(f.ctx, chat.ID, "hi there", "gpt-test")
	require.NoError(t, err)

	got, err := f.chats.DashboardChat(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "hello", got.Messages[0].Content)
	last := got.Messages[3]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Nil(t, last.SenderID)
	assert.Equal(t, "gpt-test", last.Model)
}

func TestSaveUserMessage_RedisDownFallsBackToDatabase(t *testing.T) {
	f := newFixture(t)
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	chats := NewChatService(f.db, rdb, logger.Nop(), "gpt-test")

	u := testutil.SeedUser(t, f.db, "chatter")
	chat, _, err := chats.EnsureDashboardChat(f.ctx, u.ID)
	require.NoError(t, err)

	saved, err := chats.SaveUserMessage(f.ctx, chat.ID, u.ID, "ping")
	require.NoError(t, err)
	assert.True(t, saved)
	saved, err = chats.SaveUserMessage(f.ctx, chat.ID, u.ID, "ping")
	require.NoError(t, err)
	assert.False(t, saved)
}

// memRedis answers SET NX and DEL from a map through a client hook, so no
// server is dialled.
type memRedis struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemRedis(t *testing.T) (*redis.Client, *memRedis) {
	t.Helper()
	m := &memRedis{keys: map[string]bool{}}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	rdb.AddHook(m)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, m
}

func (m *memRedis) DialHook(next redis.DialHook) redis.DialHook { return next }

func (m *memRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (m *memRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		args := cmd.Args()
		switch c := cmd.(type) {
		case *redis.BoolCmd:
			key := args[1].(string)
			c.SetVal(!m.keys[key])
			m.keys[key] = true
		case *redis.IntCmd:
			var n int64
			for _, a := range args[1:] {
				if k := a.(string); m.keys[k] {
					delete(m.keys, k)
					n++
				}
			}
			c.SetVal(n)
		default:
			return next(ctx, cmd)
		}
		return nil
	}
}

func (m *memRedis) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

func TestSaveUserMessage_RedisWindow(t *testing.T) {
	f := newFixture(t)
	rdb, mem := newMemRedis(t)
	chats := NewChatService(f.db, rdb, logger.Nop(), "gpt-test")

	u := testutil.SeedUser(t, f.db, "chatter")
	chat, _, err := chats.EnsureDashboardChat(f.ctx, u.ID)
	require.NoError(t, err)

	saved, err := chats.SaveUserMessage(f.ctx, chat.ID, u.ID, "ping")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, 1, mem.len())

	saved, err = chats.SaveUserMessage(f.ctx, chat.ID, u.ID, "ping")
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestSaveUserMessage_FailedInsertReleasesKey(t *testing.T) {
	f := newFixture(t)
	rdb, mem := newMemRedis(t)
	chats := NewChatService(f.db, rdb, logger.Nop(), "gpt-test")
	u := testutil.SeedUser(t, f.db, "chatter")

	// No chat 9999 exists, so the foreign key rejects the insert.
	_, err := chats.SaveUserMessage(f.ctx, 9999, u.ID, "ping")
	require.Error(t, err)
	assert.Zero(t, mem.len())

	_, err = chats.SaveUserMessage(f.ctx, 9999, u.ID, "ping")
	require.Error(t, err, "the retry reaches the database instead of being skipped")
}
