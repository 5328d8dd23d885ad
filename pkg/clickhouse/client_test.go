package clickhouse

import (
	"context"
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsNative(t *testing.T) {
	cfg := ClientConfig{
		Host: "ch", Port: 9000, Database: "stockpilot", User: "default", Password: "s3cret",
		DialTimeout: 5 * time.Second, ReadTimeout: 10 * time.Second, MaxExecTime: 30 * time.Second,
	}
	o := chOptions(cfg)

	assert.Equal(t, []string{"ch:9000"}, o.Addr)
	assert.Equal(t, ch.Native, o.Protocol)
	assert.Equal(t, "stockpilot", o.Auth.Database)
	assert.Equal(t, "s3cret", o.Auth.Password)
	assert.Equal(t, 5*time.Second, o.DialTimeout)
	assert.Equal(t, 30, o.Settings["max_execution_time"])
	assert.NotContains(t, o.Settings, "async_insert")
}

func TestOptionsHTTPAsyncInsert(t *testing.T) {
	o := chOptions(ClientConfig{Host: "localhost", Port: 8123, UseHTTP: true, AsyncInsert: true})

	assert.Equal(t, ch.HTTP, o.Protocol)
	assert.Equal(t, 1, o.Settings["async_insert"])
	assert.Equal(t, 0, o.Settings["wait_for_async_insert"])
}

func TestNewClientRequiresHost(t *testing.T) {
	c, err := NewClient(context.Background(), WithDatabase("stockpilot"), WithTimeouts(time.Second, time.Second))
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "host is required")
}
