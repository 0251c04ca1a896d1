package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modhost/internal/modkit"
)

func desc(name string, requires, soft []string, prio modkit.Priority) modkit.Descriptor {
	return modkit.Descriptor{
		Name:         name,
		Requires:     requires,
		SoftRequires: soft,
		Priority:     prio,
	}
}

func TestLoadOrder_LinearChain(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// economy requires database, shop requires economy.
	g := New([]modkit.Descriptor{
		desc("shop", []string{"economy"}, nil, modkit.PriorityNormal),
		desc("economy", []string{"database"}, nil, modkit.PriorityNormal),
		desc("database", nil, nil, modkit.PriorityNormal),
	})

	// --- Act ---
	order := g.LoadOrder()

	// --- Assert ---
	assert.Equal(t, []string{"database", "economy", "shop"}, order)
	assert.Empty(t, g.Cycles())
}

func TestLoadOrder_PriorityThenNameTieBreak(t *testing.T) {
	t.Parallel()

	// Three independent modules: higher priority first, then lexical order.
	g := New([]modkit.Descriptor{
		desc("zeta", nil, nil, modkit.PriorityHigh),
		desc("alpha", nil, nil, modkit.PriorityNormal),
		desc("beta", nil, nil, modkit.PriorityNormal),
	})

	order := g.LoadOrder()

	assert.Equal(t, []string{"zeta", "alpha", "beta"}, order)
}

func TestLoadOrder_IsDeterministic(t *testing.T) {
	t.Parallel()

	descs := []modkit.Descriptor{
		desc("a", nil, nil, modkit.PriorityNormal),
		desc("b", []string{"a"}, nil, modkit.PriorityNormal),
		desc("c", []string{"a"}, nil, modkit.PriorityHigh),
		desc("d", []string{"b", "c"}, nil, modkit.PriorityNormal),
		desc("e", nil, []string{"d"}, modkit.PriorityHighest),
	}

	first := New(descs).LoadOrder()
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, New(descs).LoadOrder(), "iteration %d", i)
	}
}

func TestLoadOrder_SoftDependencyOrdersButNeverBlocks(t *testing.T) {
	t.Parallel()

	t.Run("soft dependency present orders before dependent", func(t *testing.T) {
		t.Parallel()
		g := New([]modkit.Descriptor{
			desc("analytics", nil, []string{"metrics"}, modkit.PriorityHighest),
			desc("metrics", nil, nil, modkit.PriorityLowest),
		})

		order := g.LoadOrder()

		// analytics has the higher priority, yet metrics is emitted first
		// because the soft edge is honored when honoring it costs nothing.
		assert.Equal(t, []string{"metrics", "analytics"}, order)
	})

	t.Run("soft cycle does not stall the order", func(t *testing.T) {
		t.Parallel()
		g := New([]modkit.Descriptor{
			desc("a", nil, []string{"b"}, modkit.PriorityNormal),
			desc("b", nil, []string{"a"}, modkit.PriorityNormal),
		})

		order := g.LoadOrder()

		assert.Len(t, order, 2)
		assert.ElementsMatch(t, []string{"a", "b"}, order)
		assert.Empty(t, g.Cycles(), "soft edges must not register as cycles")
	})

	t.Run("missing soft dependency is informational only", func(t *testing.T) {
		t.Parallel()
		g := New([]modkit.Descriptor{
			desc("analytics", nil, []string{"metrics"}, modkit.PriorityNormal),
		})

		assert.Equal(t, []string{"analytics"}, g.LoadOrder())
		assert.Empty(t, g.Missing())
		assert.Equal(t, map[string][]string{"analytics": {"metrics"}}, g.MissingSoft())
	})
}

func TestCycles_RequiredCycleReportsFullPath(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A -> B -> C -> A, plus an uninvolved bystander.
	g := New([]modkit.Descriptor{
		desc("a", []string{"b"}, nil, modkit.PriorityNormal),
		desc("b", []string{"c"}, nil, modkit.PriorityNormal),
		desc("c", []string{"a"}, nil, modkit.PriorityNormal),
		desc("standalone", nil, nil, modkit.PriorityNormal),
	})

	// --- Act ---
	cycles := g.Cycles()

	// --- Assert ---
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycles[0])

	members := g.CycleMembers()
	assert.Len(t, members, 3)
	assert.NotContains(t, members, "standalone")

	// The bystander still loads; cycle members trail the order so the
	// controller can visit and fail them.
	order := g.LoadOrder()
	require.Len(t, order, 4)
	assert.Equal(t, "standalone", order[0])
}

func TestCycles_SelfDependency(t *testing.T) {
	t.Parallel()

	g := New([]modkit.Descriptor{
		desc("ouroboros", []string{"ouroboros"}, nil, modkit.PriorityNormal),
	})

	cycles := g.Cycles()

	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"ouroboros", "ouroboros"}, cycles[0])
}

func TestNew_MissingRequiredDependency(t *testing.T) {
	t.Parallel()

	g := New([]modkit.Descriptor{
		desc("shop", []string{"economy", "database"}, nil, modkit.PriorityNormal),
		desc("database", nil, nil, modkit.PriorityNormal),
	})

	missing := g.Missing()

	require.Contains(t, missing, "shop")
	assert.Equal(t, []string{"economy"}, missing["shop"])
	assert.Equal(t, []string{"database"}, g.RequiredDeps("shop"))
}

func TestNew_DuplicateDeclarationsCollapse(t *testing.T) {
	t.Parallel()

	// database declared twice as required and once more as soft: one
	// REQUIRED edge results.
	g := New([]modkit.Descriptor{
		desc("shop", []string{"database", "database"}, []string{"database"}, modkit.PriorityNormal),
		desc("database", nil, nil, modkit.PriorityNormal),
	})

	assert.Equal(t, []string{"database"}, g.RequiredDeps("shop"))
	assert.Empty(t, g.SoftDeps("shop"))
	assert.Equal(t, []string{"shop"}, g.Dependents("database"))
}

func TestTransitiveDependents(t *testing.T) {
	t.Parallel()

	// shop -> economy -> database, analytics soft-requires database.
	g := New([]modkit.Descriptor{
		desc("shop", []string{"economy"}, nil, modkit.PriorityNormal),
		desc("economy", []string{"database"}, nil, modkit.PriorityNormal),
		desc("database", nil, nil, modkit.PriorityNormal),
		desc("analytics", nil, []string{"database"}, modkit.PriorityNormal),
	})

	deps := g.TransitiveDependents("database")

	// Soft dependents are not part of the cascade.
	assert.Equal(t, []string{"economy", "shop"}, deps)
	assert.Empty(t, g.TransitiveDependents("shop"))
}
