package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"seed-admin"},
		{"drivers", "create"},
		{"drivers", "list"},
		{"drivers", "deactivate"},
		{"forms", "list"},
		{"forms", "export"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestExportNeedsDestination(t *testing.T) {
	_, err := run("forms", "export", "665f1c2e8a1b2c3d4e5f6a01")
	assert.ErrorContains(t, err, "--out or --upload")
}

func TestFormsListRejectsUnknownStatus(t *testing.T) {
	_, err := run("forms", "list", "--status", "archived")
	assert.ErrorContains(t, err, "unknown status")
}

func TestDriversCreateRequiresFlags(t *testing.T) {
	_, err := run("drivers", "create", "--name", "Ana")
	assert.ErrorContains(t, err, "pin")
}

func TestDeactivateNeedsOneArg(t *testing.T) {
	_, err := run("drivers", "deactivate")
	assert.Error(t, err)
}
