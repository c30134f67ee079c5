// File: cmd/history_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stickerverse/figmaconvert/internal/config"
	"github.com/stickerverse/figmaconvert/internal/store"
)

func TestRunHistory_ListsSessions(t *testing.T) {
	created := time.Date(2025, 11, 3, 10, 30, 0, 0, time.UTC)
	sessions := []store.Session{
		{
			ID:           "0191d2aa-41a8-7d3e-9c70-5f35b8c1a001",
			URL:          "https://example.com/pricing",
			ElementCount: 1240,
			DocumentMB:   12.52,
			CreatedAt:    created,
		},
		{
			ID:           "78f1c7ce-0b6c-4f6e-8a38-2d8d3f6f2b17",
			URL:          "https://example.com/",
			ElementCount: 310,
			DocumentMB:   1.07,
			CreatedAt:    created.Add(-time.Hour),
		},
	}

	mockStore := new(mockHistoryStore)
	mockStore.On("ListSessions", mock.Anything, 5).Return(sessions, nil)
	provider := &mockStoreProvider{store: mockStore}

	var out bytes.Buffer
	err := runHistory(context.Background(), zaptest.NewLogger(t), &config.Config{}, provider, 5, &out)

	require.NoError(t, err)
	mockStore.AssertExpectations(t)
	assert.True(t, provider.cleanupRan)
	assert.Contains(t, out.String(), "2025-11-03 10:30")
	assert.Contains(t, out.String(), "0191d2aa")
	assert.Contains(t, out.String(), "78f1c7ce")
	assert.Contains(t, out.String(), "https://example.com/pricing")
	assert.Contains(t, out.String(), "1240 elements")
	assert.Contains(t, out.String(), "12.52 MB")
}

func TestRunHistory_Empty(t *testing.T) {
	mockStore := new(mockHistoryStore)
	mockStore.On("ListSessions", mock.Anything, 20).Return([]store.Session{}, nil)
	provider := &mockStoreProvider{store: mockStore}

	var out bytes.Buffer
	err := runHistory(context.Background(), zaptest.NewLogger(t), &config.Config{}, provider, 20, &out)

	require.NoError(t, err)
	assert.Equal(t, "No recorded sessions.\n", out.String())
}

func TestRunHistory_StoreError(t *testing.T) {
	mockStore := new(mockHistoryStore)
	mockStore.On("ListSessions", mock.Anything, 20).Return(nil, errors.New("connection reset"))
	provider := &mockStoreProvider{store: mockStore}

	err := runHistory(context.Background(), zaptest.NewLogger(t), &config.Config{}, provider, 20, &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list sessions")
	assert.True(t, provider.cleanupRan)
}

func TestRunHistory_ProviderError(t *testing.T) {
	provider := &mockStoreProvider{createErr: errors.New("database URL is not configured")}

	err := runHistory(context.Background(), zaptest.NewLogger(t), &config.Config{}, provider, 20, &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize store")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0191d2aa", shortID("0191d2aa-41a8-7d3e-9c70-5f35b8c1a001"))
	assert.Equal(t, "abc", shortID("abc"))
}
