package cli_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/go-logistics/internal/cli"
)

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmdForTest()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "logistics dev")
}

func TestMigrateRejectsUnknownDirection(t *testing.T) {
	cmd := cli.NewRootCmdForTest()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "sideways"})
	assert.Error(t, cmd.Execute())
}

func TestServeRejectsArguments(t *testing.T) {
	cmd := cli.NewRootCmdForTest()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"serve", "extra"})
	assert.Error(t, cmd.Execute())
}

func TestSubcommandsRegistered(t *testing.T) {
	cmd := cli.NewRootCmdForTest()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "version"})
}
