package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetCall(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCall(ctx, "call-1", "chan-1", "default"))

	rec, err := s.GetCall(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, "chan-1", rec.ChannelID)
	assert.Equal(t, "default", rec.Pipeline)
	assert.Equal(t, "ACTIVE", rec.Status)
	assert.Nil(t, rec.EndedAt)
}

func TestUpdateCallStatusStampsEndTime(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCall(ctx, "call-1", "chan-1", "default"))
	require.NoError(t, s.UpdateCallStatus(ctx, "call-1", "EXITED"))

	rec, err := s.GetCall(ctx, "call-1")
	require.NoError(t, err)
	assert.Equal(t, "EXITED", rec.Status)
	require.NotNil(t, rec.EndedAt)
}

func TestUpdateUnknownCallFails(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.UpdateCallStatus(context.Background(), "nope", "ENDED"))
}

func TestListCallsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateCall(ctx, "call-1", "chan-1", "default"))
	require.NoError(t, s.CreateCall(ctx, "call-2", "chan-2", "announce"))
	require.NoError(t, s.UpdateCallStatus(ctx, "call-2", "ENDED"))

	records, err := s.ListCalls(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestDuplicateCallIDRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCall(ctx, "call-1", "chan-1", "default"))
	assert.Error(t, s.CreateCall(ctx, "call-1", "chan-2", "default"))
}
