// ABOUTME: Tests for mDNS discovery
// ABOUTME: Covers manager construction and endpoint formatting
package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{
		ServiceName: "hspbridge",
		Port:        9001,
	})
	require.NotNil(t, mgr)
	assert.NotNil(t, mgr.logger)
	assert.NotNil(t, mgr.Endpoints())

	mgr.Stop()
	assert.Error(t, mgr.ctx.Err())
}

func TestEndpointAddr(t *testing.T) {
	e := &Endpoint{Host: "192.168.1.20", Port: 9001}
	assert.Equal(t, "192.168.1.20:9001", e.Addr())
}

func TestGetLocalIPsAreIPv4(t *testing.T) {
	ips, err := getLocalIPs()
	require.NoError(t, err)

	for _, ip := range ips {
		assert.NotNil(t, ip.To4())
		assert.False(t, ip.IsLoopback())
	}
}
