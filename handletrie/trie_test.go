package handletrie

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type countValue struct {
	n int
}

func (c *countValue) Merge(other Value) {
	c.n += other.(*countValue).n
}

func (c *countValue) String() string {
	return fmt.Sprintf("count=%d", c.n)
}

func key(i int) string {
	return fmt.Sprintf("%032x", i)
}

func TestInsertLookupRoundTrip(t *testing.T) {
	tr := New(32)
	_, err := tr.Insert(key(1), &countValue{n: 1})
	require.NoError(t, err)

	v, ok, err := tr.Lookup(key(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v.(*countValue).n)
}

func TestLookupMissingKeyIsNotFound(t *testing.T) {
	tr := New(32)
	_, err := tr.Insert(key(1), &countValue{n: 1})
	require.NoError(t, err)

	_, ok, err := tr.Lookup(key(2))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInsertCollisionMerges(t *testing.T) {
	tr := New(32)
	merged, err := tr.Insert(key(7), &countValue{n: 1})
	require.NoError(t, err)
	require.Equal(t, 1, merged.(*countValue).n)

	merged, err = tr.Insert(key(7), &countValue{n: 4})
	require.NoError(t, err)
	require.Equal(t, 5, merged.(*countValue).n)

	v, ok, err := tr.Lookup(key(7))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, v.(*countValue).n)
}

func TestInsertRejectsWrongKeySize(t *testing.T) {
	tr := New(32)
	_, err := tr.Insert("abc", &countValue{n: 1})
	require.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestInsertRejectsNonHexChar(t *testing.T) {
	tr := New(32)
	bad := "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"
	_, err := tr.Insert(bad, &countValue{n: 1})
	require.ErrorIs(t, err, ErrInvalidKeyChar)
}

func TestRemoveClearsValue(t *testing.T) {
	tr := New(32)
	_, err := tr.Insert(key(9), &countValue{n: 1})
	require.NoError(t, err)

	require.NoError(t, tr.Remove(key(9)))

	_, ok, err := tr.Lookup(key(9))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTraverseVisitsEveryLeafExactlyOnce(t *testing.T) {
	tr := New(32)
	const n = 200
	for i := 0; i < n; i++ {
		_, err := tr.Insert(key(i), &countValue{n: i})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	tr.Traverse(false, func(node *Node) bool {
		seen[node.Suffix()] = true
		return false
	})
	require.Len(t, seen, n)
	for i := 0; i < n; i++ {
		require.True(t, seen[key(i)])
	}
}

func TestTraverseStopsEarlyWhenVisitorReturnsTrue(t *testing.T) {
	tr := New(32)
	for i := 0; i < 50; i++ {
		_, err := tr.Insert(key(i), &countValue{n: i})
		require.NoError(t, err)
	}

	visited := 0
	tr.Traverse(false, func(node *Node) bool {
		visited++
		return true
	})
	require.Equal(t, 1, visited)
}

func TestConcurrentInsertsAreSafe(t *testing.T) {
	tr := New(32)
	var wg sync.WaitGroup
	const n = 500
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := tr.Insert(key(i), &countValue{n: 1})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count := 0
	tr.Traverse(true, func(node *Node) bool {
		count++
		return false
	})
	require.Equal(t, n, count)
}

func TestConcurrentInsertsOnSameKeyMergeWithoutLoss(t *testing.T) {
	tr := New(32)
	var wg sync.WaitGroup
	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tr.Insert(key(42), &countValue{n: 1})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	v, ok, err := tr.Lookup(key(42))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, n, v.(*countValue).n)
}
