package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range getCommands("test") {
		names = append(names, cmd.Name)
		assert.NotNil(t, cmd.Action, cmd.Name)
		assert.NotEmpty(t, cmd.Usage, cmd.Name)
	}

	assert.ElementsMatch(t, []string{
		"server",
		"migrate",
		"create-master-secret",
		"create-client",
		"unlock-client",
		"purge-expired-tokens",
		"refresh-credentials",
		"verify-audit-events",
	}, names)
}
