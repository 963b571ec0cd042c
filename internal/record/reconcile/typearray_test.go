package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casefile/internal/record/models"
	id "casefile/pkg/domain"
)

func TestTypeItems_MergesIncomingCodes(t *testing.T) {
	actor := id.UserID(uuid.New())
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)

	existing := []models.TypeItem{
		{Code: "A", CreatedBy: actor, UpdatedBy: actor, CreatedAt: created},
		{Code: "B", CreatedBy: actor, UpdatedBy: actor, CreatedAt: created},
	}

	result := TypeItems(existing, []string{"B", "C"}, actor, now)
	require.Len(t, result, 3)

	byCode := make(map[string]models.TypeItem, len(result))
	for _, item := range result {
		byCode[item.Code] = item
	}

	require.NotNil(t, byCode["A"].DeletedAt, "A was dropped from the payload and must be soft-deleted")
	assert.Equal(t, now, *byCode["A"].DeletedAt)

	assert.Nil(t, byCode["B"].DeletedAt, "B survived the payload and must be untouched")
	assert.Equal(t, created, byCode["B"].CreatedAt)

	assert.Nil(t, byCode["C"].DeletedAt)
	assert.Equal(t, now, byCode["C"].CreatedAt)
	assert.Equal(t, actor, byCode["C"].CreatedBy)
}

func TestTypeItems_NilIncomingLeavesCollectionUnchanged(t *testing.T) {
	actor := id.UserID(uuid.New())
	now := time.Now()
	existing := []models.TypeItem{{Code: "A", CreatedAt: now.Add(-time.Hour)}}

	result := TypeItems(existing, nil, actor, now)

	require.Len(t, result, 1)
	assert.Equal(t, existing[0], result[0])
}

func TestTypeItems_EmptyIncomingDeletesEverything(t *testing.T) {
	actor := id.UserID(uuid.New())
	now := time.Now()
	existing := []models.TypeItem{{Code: "A"}, {Code: "B"}}

	result := TypeItems(existing, []string{}, actor, now)

	require.Len(t, result, 2)
	for _, item := range result {
		assert.NotNil(t, item.DeletedAt)
	}
}

func TestTypeItems_NoResurrectionOfDeletedCode(t *testing.T) {
	actor := id.UserID(uuid.New())
	deletedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := deletedAt.Add(24 * time.Hour)
	existing := []models.TypeItem{{Code: "A", DeletedAt: &deletedAt}}

	result := TypeItems(existing, []string{"A"}, actor, now)

	// The code reappearing in the payload is treated as "already present":
	// the deleted item keeps its deletion stamp and no second item is added.
	require.Len(t, result, 1)
	require.NotNil(t, result[0].DeletedAt)
	assert.Equal(t, deletedAt, *result[0].DeletedAt)
}

func TestTypeItems_AlreadyDeletedItemKeepsItsDeletionTime(t *testing.T) {
	actor := id.UserID(uuid.New())
	deletedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := deletedAt.Add(24 * time.Hour)
	existing := []models.TypeItem{{Code: "A", DeletedAt: &deletedAt}}

	result := TypeItems(existing, []string{"B"}, actor, now)

	require.Len(t, result, 2)
	assert.Equal(t, deletedAt, *result[0].DeletedAt)
}

func TestTypeItems_DedupesAndTrimsIncomingCodes(t *testing.T) {
	actor := id.UserID(uuid.New())
	now := time.Now()

	result := TypeItems(nil, []string{" A ", "A", "", "B"}, actor, now)

	require.Len(t, result, 2)
	assert.Equal(t, "A", result[0].Code)
	assert.Equal(t, "B", result[1].Code)
}

func TestTypeItems_DoesNotMutateCallerSlice(t *testing.T) {
	actor := id.UserID(uuid.New())
	now := time.Now()
	existing := []models.TypeItem{{Code: "A"}}

	_ = TypeItems(existing, []string{}, actor, now)

	assert.Nil(t, existing[0].DeletedAt, "input slice must not be mutated")
}

func TestActiveCodes_FiltersDeleted(t *testing.T) {
	deletedAt := time.Now()
	items := []models.TypeItem{
		{Code: "A"},
		{Code: "B", DeletedAt: &deletedAt},
		{Code: "C"},
	}
	assert.Equal(t, []string{"A", "C"}, ActiveCodes(items))
}
