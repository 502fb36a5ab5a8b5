package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/newscuss/internal/debate"
	"github.com/set-night/newscuss/internal/storage"
)

func TestLimiter_Window(t *testing.T) {
	l := NewLimiter(2)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.Allow(1, now))
	assert.True(t, l.Allow(1, now.Add(10*time.Second)))
	assert.False(t, l.Allow(1, now.Add(20*time.Second)))
	assert.True(t, l.Allow(2, now.Add(20*time.Second)), "other chats have their own window")

	assert.True(t, l.Allow(1, now.Add(time.Minute)))
}

func TestLimiter_Prune(t *testing.T) {
	l := NewLimiter(1)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l.Allow(1, now)
	l.Allow(2, now.Add(50*time.Second))

	l.Prune(now.Add(70 * time.Second))
	assert.Len(t, l.windows, 1)
}

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(0)
	for range 100 {
		assert.True(t, l.Allow(1, time.Now()))
	}
}

func TestChatID(t *testing.T) {
	msg := &models.Update{Message: &models.Message{Chat: models.Chat{ID: 5}}}
	assert.Equal(t, int64(5), ChatID(msg))

	cb := &models.Update{CallbackQuery: &models.CallbackQuery{
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{Chat: models.Chat{ID: 9}}},
	}}
	assert.Equal(t, int64(9), ChatID(cb))

	assert.Zero(t, ChatID(&models.Update{}))
}

func TestControllerLoader(t *testing.T) {
	store := storage.NewSessionStore(nil, "k")
	reg := debate.NewRegistry(func(int64) *debate.Controller {
		return debate.New(nil, nil, store)
	})

	var got *debate.Controller
	h := ControllerLoader(reg)(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		got = GetController(ctx)
	})

	h(context.Background(), nil, &models.Update{Message: &models.Message{Chat: models.Chat{ID: 3}}})
	require.NotNil(t, got)
	assert.Equal(t, 1, reg.Len())

	got = nil
	h(context.Background(), nil, &models.Update{})
	assert.Nil(t, got)
}

func TestRecover_SwallowsPanic(t *testing.T) {
	h := Recover()(func(context.Context, *bot.Bot, *models.Update) {
		panic("boom")
	})
	assert.NotPanics(t, func() {
		h(context.Background(), nil, &models.Update{})
	})
}
