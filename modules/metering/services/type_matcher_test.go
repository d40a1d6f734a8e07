package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enerflow/metering/modules/metering/domain/entities/typerule"
)

func TestTypeMatcher_Match(t *testing.T) {
	t.Parallel()

	matcher := NewTypeMatcher(newTypeRuleRepoStub(
		typerule.New("NARTIS", "P3", "400", "SPLIT", 60, typerule.ScopeTech),
		typerule.New("NARTIS-I100-W113", "P1", "230", "SPLIT", 5, typerule.ScopeTech),
		typerule.New("FOBOS", "P3", "400", "MONO", 60, typerule.ScopeTech),
	))
	ctx := context.Background()

	rule, ok, err := matcher.Match(ctx, "NARTIS-I100-W113", typerule.ScopeTech)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "P1", rule.Phase())
	require.Equal(t, "230", rule.Voltage())
	require.Equal(t, "SPLIT", rule.FormFactor())

	// The longest pattern wins even when a shorter one also matches.
	rule, ok, err = matcher.Match(ctx, "nartis-i100-w113 rev. 2", typerule.ScopeTech)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "P1", rule.Phase())

	rule, ok, err = matcher.Match(ctx, "NARTIS-I300", typerule.ScopeTech)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "P3", rule.Phase())

	_, ok, err = matcher.Match(ctx, "MIR-C04", typerule.ScopeTech)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = matcher.Match(ctx, "   ", typerule.ScopeTech)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTypeMatcher_ScopeAndActiveFiltering(t *testing.T) {
	t.Parallel()

	matcher := NewTypeMatcher(newTypeRuleRepoStub(
		typerule.New("NARTIS", "P3", "400", "SPLIT", 60, typerule.ScopeTech),
		typerule.New("MIR-C04", "P1", "230", "MONO", 5, typerule.ScopeRegion),
		typerule.New("FOBOS", "P3", "400", "MONO", 60, typerule.ScopeRegion).WithActive(false),
	))
	ctx := context.Background()

	// A rule scoped to the other workflow branch never matches.
	_, ok, err := matcher.Match(ctx, "NARTIS-I300", typerule.ScopeRegion)
	require.NoError(t, err)
	require.False(t, ok)

	rule, ok, err := matcher.Match(ctx, "MIR-C04", typerule.ScopeRegion)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "MONO", rule.FormFactor())

	// Deactivated rules stay in the store but are skipped.
	_, ok, err = matcher.Match(ctx, "FOBOS-3", typerule.ScopeRegion)
	require.NoError(t, err)
	require.False(t, ok)
}
