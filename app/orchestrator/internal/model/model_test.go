package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestState(t *testing.T) {
	d := &ServiceDescription{ID: "svc"}
	assert.Equal(t, StateCreated, d.State())
	assert.False(t, d.Deployed())

	d.DeployedNodes = []string{"n1"}
	assert.Equal(t, StateDeployed, d.State())
	assert.True(t, d.Deployed())

	d.DeployedNodes = []string{}
	assert.Equal(t, StateUndeployed, d.State())
}

func TestCloneIsDeep(t *testing.T) {
	d := &ServiceDescription{
		ID:            "svc",
		Command:       []string{"run"},
		Env:           map[string]string{"A": "1"},
		DeployedNodes: []string{},
	}
	c := d.Clone()
	c.Command[0] = "changed"
	c.Env["A"] = "2"

	assert.Equal(t, "run", d.Command[0])
	assert.Equal(t, "1", d.Env["A"])
	assert.NotNil(t, c.DeployedNodes)
	assert.Equal(t, StateUndeployed, c.State())
}
