package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"search", "batch", "enrich", "history", "keys", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "leadgen", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSearchCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"json", "no-save", "progress"} {
		flag := searchCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "search should have --%s flag", flagName)
	}
}

func TestBatchCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"mapping", "concurrency", "encoding", "delimiter", "sheet", "json"} {
		flag := batchCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "batch should have --%s flag", flagName)
	}

	flag := batchCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestHistoryCommand_HasSubcommands(t *testing.T) {
	cmds := historyCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"list", "show", "favorite", "delete", "clear"}
	for _, name := range expected {
		assert.True(t, names[name], "history should have subcommand %q", name)
	}
}

func TestKeysCommand_HasSubcommands(t *testing.T) {
	cmds := keysCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"set", "show", "clear"}
	for _, name := range expected {
		assert.True(t, names[name], "keys should have subcommand %q", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestDelimiterRune(t *testing.T) {
	assert.Equal(t, ';', delimiterRune(";"))
	assert.Equal(t, '\t', delimiterRune("\t"))
	assert.Equal(t, '§', delimiterRune("§"))
	assert.Equal(t, '§', delimiterRune("§;"))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "(not set)", mask(""))
	assert.Equal(t, "****", mask("abc"))
	assert.Equal(t, "****6789", mask("tok-123456789"))
}
