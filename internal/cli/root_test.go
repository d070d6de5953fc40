package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	assert.True(t, names["version"])
	assert.True(t, names["serve"])
	assert.True(t, names["replica"])
	assert.True(t, names["purge"])
}

func TestReplicaCommandHasStatusSubcommand(t *testing.T) {
	var found bool
	for _, cmd := range replicaCmd.Commands() {
		if cmd.Name() == "status" {
			found = true
		}
	}

	assert.True(t, found)
}

func TestPurgeCommandHasSweepSubcommand(t *testing.T) {
	var found bool
	for _, cmd := range purgeCmd.Commands() {
		if cmd.Name() == "sweep" {
			found = true
		}
	}

	assert.True(t, found)
}
