package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plastic-labs/textarena/pkg/core"
	"github.com/plastic-labs/textarena/pkg/envs/nim"
)

func nimSpec() Spec {
	return Spec{
		ID:         nim.GameID,
		MinPlayers: nim.MinPlayers,
		MaxPlayers: nim.MaxPlayers,
		Mode:       core.Sequential,
		New:        nim.New,
	}
}

func TestRegisterAndMake(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(nimSpec()))

	env, spec, err := r.Make(nim.GameID, nil)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, nim.GameID, spec.ID)
	assert.Equal(t, core.Sequential, spec.Mode)

	// Each Make returns an independent instance.
	env2, _, err := r.Make(nim.GameID, nil)
	require.NoError(t, err)
	assert.NotSame(t, env, env2)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(nimSpec()))
	require.Error(t, r.Register(nimSpec()))
}

func TestRegisterRejectsBadSpecs(t *testing.T) {
	r := New()

	spec := nimSpec()
	spec.ID = ""
	require.Error(t, r.Register(spec))

	spec = nimSpec()
	spec.New = nil
	require.Error(t, r.Register(spec))

	spec = nimSpec()
	spec.MinPlayers = 3
	spec.MaxPlayers = 2
	require.Error(t, r.Register(spec))
}

func TestFreezeClosesRegistration(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(nimSpec()))
	r.Freeze()

	other := nimSpec()
	other.ID = "other-v0"
	require.Error(t, r.Register(other))

	// Lookups still work after freeze.
	_, _, err := r.Make(nim.GameID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{nim.GameID}, r.IDs())
}

func TestMakeUnknownGame(t *testing.T) {
	r := New()
	_, _, err := r.Make("missing-v0", nil)
	require.Error(t, err)
}
