package objtable_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbtaylor-labs/rwqueue/objtable"
)

func TestInsertLookupDelete(t *testing.T) {
	tbl := objtable.New()
	_, err := tbl.Insert("widget", 42)
	require.NoError(t, err)

	e := tbl.Lookup("widget")
	require.NotNil(t, e)
	assert.Equal(t, "widget", e.Name)
	assert.Equal(t, 42, e.Payload)

	require.NoError(t, tbl.Delete("widget"))
	assert.Nil(t, tbl.Lookup("widget"))
}

func TestListReturnsSortedNames(t *testing.T) {
	tbl := objtable.New()
	for _, n := range []string{"zebra", "apple", "mango"} {
		_, err := tbl.Insert(n, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"apple", "mango", "zebra"}, tbl.List())

	require.NoError(t, tbl.Delete("mango"))
	assert.Equal(t, []string{"apple", "zebra"}, tbl.List())
}

func TestInsertDuplicateFails(t *testing.T) {
	tbl := objtable.New()
	_, err := tbl.Insert("widget", 1)
	require.NoError(t, err)
	_, err = tbl.Insert("widget", 2)
	assert.Error(t, err)
}

func TestDeleteMissingFails(t *testing.T) {
	tbl := objtable.New()
	assert.Error(t, tbl.Delete("nope"))
}

func TestEntryPayloadGuardedByItsOwnLock(t *testing.T) {
	tbl := objtable.New()
	e, err := tbl.Insert("counter", 0)
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			e.Lock.AcquireExclusive()
			e.Payload = e.Payload.(int) + 1
			e.Lock.ReleaseExclusive()
		}()
	}
	wg.Wait()
	assert.Equal(t, n, e.Payload)
}

func TestLookupForWriteConvertsInPlace(t *testing.T) {
	tbl := objtable.New()
	_, err := tbl.Insert("widget", "old")
	require.NoError(t, err)

	e, err := tbl.LookupForWrite("widget")
	require.NoError(t, err)
	assert.True(t, e.Lock.Owned())
	assert.Equal(t, 0, e.Lock.SharedOwners())
	e.Payload = "new"
	e.Lock.ReleaseExclusive()

	assert.Equal(t, "new", tbl.Lookup("widget").Payload)
}
