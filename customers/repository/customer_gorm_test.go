package repository

import (
	"context"
	"testing"

	"github.com/AzielCF/az-crm/core/database"
	"github.com/AzielCF/az-crm/customers/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *CustomerGormRepository {
	t.Helper()
	db, err := database.OpenInMemory("customers-" + uuid.NewString())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	repo := NewCustomerGormRepository(db)
	if err := repo.InitSchema(context.Background()); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return repo
}

func TestCustomerRepository_CRUD(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	c := &domain.Customer{FirstName: "Ana", LastName: "Pérez", Phone: "3804345688", AssignedTo: "DENIS", Status: domain.StatusPending}
	require.NoError(t, repo.Create(ctx, c))
	require.NotEmpty(t, c.ID)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Pérez", got.FullName())
	assert.Equal(t, domain.StatusPending, got.Status)

	got.Status = domain.StatusNoAnswer
	got.Phone = ""
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNoAnswer, again.Status)
	assert.Empty(t, again.Phone)
	assert.True(t, again.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	err = repo.Update(ctx, &domain.Customer{ID: "missing", FirstName: "X", Status: domain.StatusPending})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestCustomerRepository_List(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	for _, c := range []*domain.Customer{
		{FirstName: "Ana", AssignedTo: "DENIS", Status: domain.StatusNoAnswer},
		{FirstName: "Bruno", AssignedTo: "MARTIN", Status: domain.StatusNoAnswer},
		{FirstName: "Carla", AssignedTo: "DENIS", Status: domain.StatusPurchased, Email: "carla@example.com"},
	} {
		require.NoError(t, repo.Create(ctx, c))
	}

	status := domain.StatusNoAnswer
	list, err := repo.List(ctx, domain.CustomerFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.List(ctx, domain.CustomerFilter{AssignedTo: "denis"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.List(ctx, domain.CustomerFilter{Search: "carla@"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Carla", list[0].FirstName)

	list, err = repo.List(ctx, domain.CustomerFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
