// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommand_Has(t *testing.T) {
	cmd := CmdMigrate | CmdSchema
	assert.True(t, cmd.Has(CmdMigrate))
	assert.True(t, cmd.Has(CmdSchema))
	assert.False(t, cmd.Has(CmdDrop))
}

func TestCommand_Aggregates(t *testing.T) {
	assert.True(t, CmdDeployWithData.Has(CmdData))
	assert.True(t, CmdDeployWithData.Has(CmdSchema))
	assert.True(t, CmdDropAndAll.Has(CmdDrop))
	assert.True(t, CmdResetAndData.Has(CmdReset))
	assert.False(t, CmdResetAndData.Has(CmdSchema))
}

func TestCommand_Destructive(t *testing.T) {
	assert.True(t, CmdDrop.destructive())
	assert.True(t, CmdReset.destructive())
	assert.False(t, CmdMigrate.destructive())
	assert.True(t, CmdDropAndAll.destructive())
}
