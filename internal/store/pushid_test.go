package store

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushID_Format(t *testing.T) {
	g := NewPushIDGenerator()
	id := g.Next()
	require.Len(t, id, 20)
	for _, c := range id {
		require.Contains(t, pushAlphabet, string(c))
	}
}

func TestPushID_MonotonicAcrossMilliseconds(t *testing.T) {
	base := time.UnixMilli(1724800000000)
	tick := 0
	g := NewPushIDGeneratorAt(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	})

	prev := g.Next()
	for i := 0; i < 100; i++ {
		next := g.Next()
		require.Less(t, prev, next)
		prev = next
	}
}

func TestPushID_SameMillisecondStillOrdered(t *testing.T) {
	// 时钟冻结：所有 id 落在同一毫秒，顺序必须靠随机尾部递增保证
	frozen := time.UnixMilli(1724800000000)
	g := NewPushIDGeneratorAt(func() time.Time { return frozen })

	ids := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		ids = append(ids, g.Next())
	}

	require.True(t, sort.StringsAreSorted(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		// 同一毫秒前缀一致
		require.Equal(t, ids[0][:8], id[:8])
	}
}
