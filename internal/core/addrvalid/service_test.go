package addrvalid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-overlay/config"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
	"github.com/dep2p/go-overlay/tests/mocks"
)

func newConn(id string) *mocks.MockConnection {
	return mocks.NewMockConnection(id, types.DirInbound, types.NewAddress("10.0.0.1", 9000), time.Now())
}

func TestService_InProgressTracking(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	s := New(ProverFunc(func(ctx context.Context, _ pkgif.Connection) error {
		close(entered)
		<-release
		return nil
	}), config.DefaultAddressValidationConfig())
	defer s.Shutdown()

	conn := newConn("c1")
	assert.True(t, s.IsNotInProgress(conn))

	done := make(chan error, 1)
	go func() { done <- s.StartAddressValidationProtocol(context.Background(), conn) }()

	<-entered
	assert.True(t, s.IsInProgress(conn))
	assert.Equal(t, 1, s.NumInProgress())
	assert.ErrorIs(t, s.StartAddressValidationProtocol(context.Background(), conn), ErrAlreadyInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, s.IsNotInProgress(conn))

	t.Log("✅ 进行中状态跟踪正确")
}

func TestService_ProverError(t *testing.T) {
	errUnreachable := errors.New("unreachable")
	s := New(ProverFunc(func(context.Context, pkgif.Connection) error {
		return errUnreachable
	}), config.DefaultAddressValidationConfig())
	defer s.Shutdown()

	conn := newConn("c1")
	assert.ErrorIs(t, s.StartAddressValidationProtocol(context.Background(), conn), errUnreachable)
	assert.True(t, s.IsNotInProgress(conn))
}

func TestService_Timeout(t *testing.T) {
	cfg := config.AddressValidationConfig{Timeout: config.Duration(20 * time.Millisecond)}
	s := New(ProverFunc(func(ctx context.Context, _ pkgif.Connection) error {
		<-ctx.Done()
		return ctx.Err()
	}), cfg)
	defer s.Shutdown()

	err := s.StartAddressValidationProtocol(context.Background(), newConn("c1"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_CallerCancel(t *testing.T) {
	s := New(ProverFunc(func(ctx context.Context, _ pkgif.Connection) error {
		<-ctx.Done()
		return ctx.Err()
	}), config.DefaultAddressValidationConfig())
	defer s.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.StartAddressValidationProtocol(ctx, newConn("c1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_ShutdownCancelsInFlight(t *testing.T) {
	entered := make(chan struct{})
	s := New(ProverFunc(func(ctx context.Context, _ pkgif.Connection) error {
		close(entered)
		<-ctx.Done()
		return ctx.Err()
	}), config.DefaultAddressValidationConfig())

	done := make(chan error, 1)
	go func() { done <- s.StartAddressValidationProtocol(context.Background(), newConn("c1")) }()
	<-entered

	s.Shutdown()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.ErrorIs(t, s.StartAddressValidationProtocol(context.Background(), newConn("c2")), ErrClosed)

	s.Shutdown()

	t.Log("✅ Shutdown 取消进行中的验证")
}
