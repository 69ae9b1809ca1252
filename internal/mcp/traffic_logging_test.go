package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/rpggio/liveshop/internal/domain/session"
	"github.com/stretchr/testify/require"
)

func TestFormatPayload(t *testing.T) {
	require.Equal(t, "<nil>", formatPayload(nil))
	require.Equal(t, `{"a":1}`, formatPayload(map[string]int{"a": 1}))
	require.Equal(t, "func()", formatPayload(func() {}))

	long := formatPayload(strings.Repeat("x", maxLoggedPayload*2))
	require.True(t, strings.HasSuffix(long, "...(truncated)"))
	require.Len(t, long, maxLoggedPayload+len("...(truncated)"))
}

func TestToolNameIgnoresOtherMethods(t *testing.T) {
	require.Empty(t, toolName("tools/list", nil))
	require.Empty(t, toolName("tools/call", nil))
}

func TestPrincipalAttrs(t *testing.T) {
	require.Nil(t, principalAttrs(context.Background()))

	ctx := context.WithValue(context.Background(), principalKey, session.Customer("client-1"))
	require.Equal(t, []any{"actor", "CUSTOMER", "client_id", "client-1"}, principalAttrs(ctx))

	ctx = context.WithValue(context.Background(), principalKey, session.Staff("staff-1"))
	require.Equal(t, []any{"actor", "STAFF", "user_id", "staff-1"}, principalAttrs(ctx))
}
