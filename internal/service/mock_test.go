package service

import (
	"context"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/warden/warden/internal/model"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *MockUserStore) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *MockUserStore) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *MockUserStore) Insert(ctx context.Context, nu *model.NewUser) (*model.User, error) {
	args := m.Called(ctx, nu)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	updated, _ := args.Get(0).(*model.User)
	return updated, args.Error(1)
}

// countingHasher wraps a real hasher and counts verify work.
type countingHasher struct {
	PasswordHasher
	verifies atomic.Int64
	decoys   atomic.Int64
}

func (h *countingHasher) Verify(password, digest string) bool {
	h.verifies.Add(1)
	return h.PasswordHasher.Verify(password, digest)
}

func (h *countingHasher) VerifyDecoy(password string) bool {
	h.decoys.Add(1)
	return h.PasswordHasher.VerifyDecoy(password)
}

type failingCodec struct {
	TokenCodec
	err error
}

func (c failingCodec) Issue(string) (string, error) {
	return "", c.err
}
