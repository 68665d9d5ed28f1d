package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDemoCommand(t *testing.T) {
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"demo", "--home", t.TempDir(), "--log-level", "error"})

	require.NoError(t, root.Execute(), errOut.String())
	require.Contains(t, out.String(), "prize paid:")
	require.Contains(t, out.String(), "lottery/5")
	require.NotContains(t, out.String(), "false")
	// header, one row per step, prize line
	require.Equal(t, 13, strings.Count(out.String(), "\n"))
}

func TestStartRejectsBadTransport(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"start", "--home", t.TempDir(), "--transport", "udp"})

	err := root.Execute()
	require.ErrorContains(t, err, "abci.transport")
}
