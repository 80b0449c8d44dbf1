package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimScenarios_UseSimAdapter(t *testing.T) {
	for _, sc := range simScenarios("as7263") {
		args := strings.Join(sc.args, " ")
		assert.Contains(t, args, "--adapter sim --variant as7263", sc.name)
		assert.Equal(t, "color", sc.args[0], sc.name)
	}
}

func TestRunScenarios(t *testing.T) {
	var calls [][]string
	run := func(ctx context.Context, args []string) ([]byte, error) {
		calls = append(calls, args)
		switch args[0] {
		case "fail":
			return []byte("boom"), errors.New("exit status 1")
		case "read":
			return []byte("violet 450nm 258\n"), nil
		}
		return nil, nil
	}

	err := runScenarios(context.Background(), run, []scenario{
		{name: "ok", args: []string{"init"}},
		{name: "match", args: []string{"read"}, expect: "violet 450nm"},
		{name: "mismatch", args: []string{"read"}, expect: "R 610nm"},
		{name: "exit", args: []string{"fail"}},
	})
	require.Error(t, err)
	assert.Equal(t, "2 of 4 scenarios failed: mismatch, exit", err.Error())
	assert.Len(t, calls, 4, "a failing scenario does not stop the run")
}

func TestRunScenarios_AllPass(t *testing.T) {
	run := func(ctx context.Context, args []string) ([]byte, error) {
		return []byte("hardware version 0x3f (supported)\n"), nil
	}
	assert.NoError(t, runScenarios(context.Background(), run, simScenarios("as7262")[:1]))
}
