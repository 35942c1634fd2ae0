package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type SettingsMock struct {
	mock.Mock
}

func (m *SettingsMock) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *SettingsMock) Set(key, value string) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *SettingsMock) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

type StoreHandleMock struct {
	mock.Mock
}

func (m *StoreHandleMock) Open(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StoreHandleMock) CheckIntegrity(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *StoreHandleMock) MigrationVersion(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *StoreHandleMock) ListSettings(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *StoreHandleMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type RestarterMock struct {
	mock.Mock
}

func (m *RestarterMock) Restart() error {
	args := m.Called()
	return args.Error(0)
}
