// SPDX-License-Identifier: Apache-2.0

package params

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbex-project/dbex/internal/extfn"
)

func TestSubstituteSQL(t *testing.T) {
	p := New(map[string]string{"DatabaseName": "acme"}, nil, time.Now(), "svc")
	out := p.SubstituteSQL("CREATE DATABASE {{DatabaseName}}; -- owner {{Missing}}")
	assert.Equal(t, "CREATE DATABASE acme; -- owner {{Missing}}", out)
}

func TestEvaluateRuntimeParam_WellKnown(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := New(nil, nil, now, "alice")

	v, err := p.EvaluateRuntimeParam("UserName", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", v)

	v, err = p.EvaluateRuntimeParam("DateTimeNow", nil)
	require.NoError(t, err)
	assert.Equal(t, now, v)
}

func TestEvaluateRuntimeParam_Registry(t *testing.T) {
	reg := extfn.NewRegistry()
	reg.Register("Env.MachineName", func() (any, error) { return "host1", nil })

	p := New(nil, nil, time.Now(), "alice")
	v, err := p.EvaluateRuntimeParam("Env.MachineName", reg)
	require.NoError(t, err)
	assert.Equal(t, "host1", v)
}

func TestEvaluateRuntimeParam_Unresolved(t *testing.T) {
	p := New(nil, nil, time.Now(), "alice")
	_, err := p.EvaluateRuntimeParam("Nonexistent.Thing", extfn.NewRegistry())
	require.Error(t, err)
}

func TestIsRuntimeParam(t *testing.T) {
	expr, ok := IsRuntimeParam("^(UserName)")
	require.True(t, ok)
	assert.Equal(t, "UserName", expr)

	_, ok = IsRuntimeParam("plain string")
	assert.False(t, ok)
}
