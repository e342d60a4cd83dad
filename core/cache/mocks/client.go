package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of cache.Client
type Client struct {
	mock.Mock
}

func (m *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	var val []byte
	if b, ok := args.Get(0).([]byte); ok {
		val = b
	}
	return val, args.Bool(1), args.Error(2)
}

func (m *Client) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}
