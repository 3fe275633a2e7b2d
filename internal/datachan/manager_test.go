package datachan

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenPassiveIdempotent(t *testing.T) {
	m := New(Config{ListenTimeout: time.Second, AcceptTimeout: time.Second})
	addr1, err := m.ListenPassive(0)
	require.NoError(t, err)
	addr2, err := m.ListenPassive(0)
	require.NoError(t, err)
	assert.Equal(t, addr1.String(), addr2.String(), "a second ListenPassive call must reuse the existing listener")
	assert.Equal(t, ModePassive, m.Mode())
	require.NoError(t, m.CloseListener())
}

func TestPassiveOpenRoundTrip(t *testing.T) {
	m := New(Config{AcceptTimeout: 2 * time.Second})
	addr, err := m.ListenPassive(0)
	require.NoError(t, err)

	tcpAddr := addr.(*net.TCPAddr)

	done := make(chan error, 1)
	go func() {
		conn, err := m.Open()
		if err == nil {
			conn.Close()
		}
		done <- err
	}()

	client, err := net.DialTimeout("tcp", tcpAddr.String(), time.Second)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, <-done)
	require.NoError(t, m.CloseListener())
}

func TestSetActiveClosesListener(t *testing.T) {
	m := New(Config{})
	_, err := m.ListenPassive(0)
	require.NoError(t, err)

	m.SetActive(net.ParseIP("127.0.0.1"), 0)
	assert.Equal(t, ModeActive, m.Mode())

	// A new passive listener should be created since SetActive tore down
	// the previous one.
	addr2, err := m.ListenPassive(0)
	require.NoError(t, err)
	assert.NotNil(t, addr2)
	require.NoError(t, m.CloseListener())
}

func TestOpenWithoutModeFails(t *testing.T) {
	m := New(Config{})
	_, err := m.Open()
	assert.Error(t, err)
}

func TestCloseResetsModeKeepsListener(t *testing.T) {
	m := New(Config{AcceptTimeout: 2 * time.Second})
	addr, err := m.ListenPassive(0)
	require.NoError(t, err)
	tcpAddr := addr.(*net.TCPAddr)

	done := make(chan error, 1)
	go func() {
		_, err := m.Open()
		done <- err
	}()
	client, err := net.DialTimeout("tcp", tcpAddr.String(), time.Second)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, <-done)

	require.NoError(t, m.Close())
	assert.Equal(t, ModeUnset, m.Mode())

	// Listener persists across the reset — re-PASV reuses it rather than
	// rotating to a new port.
	addr2, err := m.ListenPassive(0)
	require.NoError(t, err)
	assert.Equal(t, addr.String(), addr2.String())
	require.NoError(t, m.CloseListener())
}
