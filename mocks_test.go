package authkit

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockProvider is a mock implementation of Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) Capabilities() Capability {
	args := m.Called()
	return args.Get(0).(Capability)
}

func (m *MockProvider) DefaultSettings() Settings {
	args := m.Called()
	return args.Get(0).(Settings)
}

func (m *MockProvider) BeginAuth(ctx context.Context, settings Settings) (*Redirect, error) {
	args := m.Called(ctx, settings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Redirect), args.Error(1)
}

func (m *MockProvider) Exchange(ctx context.Context, settings Settings, cb Callback) (*AccessToken, error) {
	args := m.Called(ctx, settings, cb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AccessToken), args.Error(1)
}

func (m *MockProvider) FetchIdentity(ctx context.Context, settings Settings, token *AccessToken, cb Callback) (*UserInformation, []byte, error) {
	args := m.Called(ctx, settings, token, cb)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*UserInformation), args.Get(1).([]byte), args.Error(2)
}
