package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockUploader is a mock implementation of the Uploader interface for testing.
type MockUploader struct {
	mock.Mock
}

// Upload is the mock implementation of the Upload method.
func (m *MockUploader) Upload(ctx context.Context, name string, data []byte) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1) //nolint:wrapcheck
}
