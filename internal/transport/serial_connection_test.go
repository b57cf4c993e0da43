// internal/transport/serial_connection_test.go
package transport

import (
	"context"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openSerialPair fabricates a serial-like device with a pty: the test holds
// the master end, the connection opens the slave path.
func openSerialPair(t *testing.T) (masterWrite func([]byte), masterRead func(int) []byte, conn Connection) {
	t.Helper()

	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	conn = NewSerialConnection(Config{
		Endpoint:    slave.Name(),
		Rate:        115200,
		ReadTimeout: 50 * time.Millisecond,
	}, zap.NewNop())
	require.NoError(t, conn.Open(context.Background()))
	t.Cleanup(func() { conn.Close() })

	masterWrite = func(data []byte) {
		_, err := master.Write(data)
		require.NoError(t, err)
	}
	masterRead = func(n int) []byte {
		buf := make([]byte, n)
		read, err := master.Read(buf)
		require.NoError(t, err)
		return buf[:read]
	}
	return masterWrite, masterRead, conn
}

func TestSerialConnection_OpenFailure(t *testing.T) {
	conn := NewSerialConnection(Config{
		Endpoint:    "/dev/does-not-exist",
		Rate:        115200,
		ReadTimeout: 50 * time.Millisecond,
	}, zap.NewNop())

	err := conn.Open(context.Background())
	require.Error(t, err)
	require.False(t, conn.IsOpen())
}

func TestSerialConnection_ReadWriteRoundTrip(t *testing.T) {
	masterWrite, masterRead, conn := openSerialPair(t)

	masterWrite([]byte("EXPR:1+2\n"))

	var got []byte
	require.Eventually(t, func() bool {
		if !conn.PollReadable() {
			return false
		}
		data, err := conn.ReadAvailable(context.Background())
		if err != nil {
			return false
		}
		got = append(got, data...)
		return string(got) == "EXPR:1+2\n"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Write(context.Background(), []byte{'='}))
	require.Equal(t, []byte{'='}, masterRead(1))
}

func TestSerialConnection_PollReadableDoesNotBlock(t *testing.T) {
	_, _, conn := openSerialPair(t)

	start := time.Now()
	conn.PollReadable()
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSerialConnection_ReadAvailableTimeoutIsNotAnError(t *testing.T) {
	_, _, conn := openSerialPair(t)

	data, err := conn.ReadAvailable(context.Background())
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestSerialConnection_CloseIsIdempotent(t *testing.T) {
	_, _, conn := openSerialPair(t)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	require.False(t, conn.IsOpen())

	require.ErrorIs(t, conn.Write(context.Background(), []byte{'0'}), ErrClosed)
	_, err := conn.ReadAvailable(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}
