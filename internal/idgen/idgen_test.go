package idgen

import (
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewCarriesPrefix(t *testing.T) {
	t.Parallel()
	t.Attr("component", "idgen")
	t.Attr("type", "unit")

	id := New(Plot)
	assert.True(t, strings.HasPrefix(id, "plot_"), "id %q should start with plot_", id)
	assert.True(t, HasPrefix(id, Plot))
	assert.False(t, HasPrefix(id, PlotCrop))

	p, raw := Split(id)
	assert.Equal(t, Plot, p)
	assert.Len(t, raw, 36)
}

func TestNewWithoutPrefix(t *testing.T) {
	t.Parallel()

	id := New("")
	assert.Len(t, id, 36)
	p, _ := Split(id)
	assert.Empty(t, p)
}

func TestIdentifiersSortInCreationOrder(t *testing.T) {
	t.Parallel()
	t.Attr("component", "idgen")
	t.Attr("type", "unit")

	const n = 500
	ids := make([]string, n)
	for i := range n {
		ids[i] = New(Observation)
	}

	assert.True(t, slices.IsSorted(ids), "sequentially issued ids must already be sorted")
}

func TestConcurrentIdentifiersAreUnique(t *testing.T) {
	t.Parallel()
	t.Attr("component", "idgen")
	t.Attr("type", "concurrency")

	const workers, perWorker = 16, 200
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)

	for range workers {
		wg.Go(func() {
			local := make([]string, 0, perWorker)
			for range perWorker {
				local = append(local, New(Plot))
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
		})
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestTimestamp(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	id := New(Trial)
	after := time.Now().Add(time.Second)

	ts, ok := Timestamp(id)
	require.True(t, ok)
	assert.True(t, ts.After(before) && ts.Before(after), "timestamp %v outside [%v, %v]", ts, before, after)

	_, ok = Timestamp("trial_not-a-uuid")
	assert.False(t, ok)

	// Version 4 UUIDs carry no timestamp.
	_, ok = Timestamp("trial_3b241101-e2bb-4255-8caf-4136c566a962")
	assert.False(t, ok)
}
