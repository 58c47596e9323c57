package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/auth"
	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/testutil"
)

func TestTokenCmd(t *testing.T) {
	t.Setenv("JWT_SECRET", "ctl-secret")
	t.Setenv("JWT_PRIVATE_KEY", "")

	var out bytes.Buffer
	cmd := tokenCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--user", testutil.AdminID.String(), "--role", auth.RoleAdmin})
	require.NoError(t, cmd.Execute())

	svc, err := auth.NewJWTService(auth.JWTConfig{Secret: "ctl-secret"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, testutil.AdminID, claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestTokenCmd_RejectsBadUser(t *testing.T) {
	t.Setenv("JWT_SECRET", "ctl-secret")
	cmd := tokenCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--user", "nope"})
	assert.Error(t, cmd.Execute())
}

func TestMigrateDown_RequiresConfirmation(t *testing.T) {
	cmd := migrateCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"down"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestCall_RequiresToken(t *testing.T) {
	opts := &connOptions{addr: "localhost:1", plaintext: true}
	err := opts.call(t.Context(), &bytes.Buffer{}, "/x/y", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bearer token")
}
