package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClientAdd_PrintsKey(t *testing.T) {
	out, err := run(t, "client", "add", "--name", "partner-app")
	require.NoError(t, err)
	require.Contains(t, out, "client partner-app id=")
	require.Contains(t, out, "key: ")
}

func TestUserAdd(t *testing.T) {
	out, err := run(t, "user", "add", "--name", "alice", "--password", "a-long-password")
	require.NoError(t, err)
	require.Contains(t, out, "user alice id=")

	_, err = run(t, "user", "add", "--name", "alice")
	require.Error(t, err)
}

func TestTokenCleanup_NeedsOneTarget(t *testing.T) {
	_, err := run(t, "token", "cleanup")
	require.ErrorContains(t, err, "--user o --client")

	_, err = run(t, "token", "cleanup", "--user", "a", "--client", "b")
	require.Error(t, err)
}

func TestPermissionGrant_BadType(t *testing.T) {
	_, err := run(t, "permission", "grant", "--site", "s1", "--type", "robot", "--target", "x")
	require.ErrorContains(t, err, "--type")
}
