package service

import (
	"testing"
	"time"

	"portalwarga/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUtilisation(t *testing.T) {
	tests := []struct {
		consumed, ceiling int64
		want              string
	}{
		{0, 0, "0.00"},
		{500000, 0, "0.00"},
		{500000, -10, "0.00"},
		{0, 1000, "0.00"},
		{250000, 1000000, "25.00"},
		{1, 3, "33.33"},
		{2, 3, "66.67"},
		{1500, 1000, "150.00"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, utilisation(tt.consumed, tt.ceiling), "%d/%d", tt.consumed, tt.ceiling)
	}
}

func TestGetUsage(t *testing.T) {
	env := newTestEnv()
	ctx := env.as(treasurerActor)
	categoryID := env.category.ID

	post := func(region, nature string, amount int64, date time.Time) {
		_, err := env.ledger.CreateManual(ctx, CreateLedgerEntryInput{
			Region: region, Nature: nature, CategoryID: &categoryID, Amount: amount, Date: date,
		})
		require.NoError(t, err)
	}
	post(model.RegionUtara, model.NatureExpense, 300000, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	post(model.RegionUtara, model.NatureExpense, 100000, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	post(model.RegionUtara, model.NatureExpense, 999999, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	post(model.RegionUtara, model.NatureExpense, 999999, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	post(model.RegionUtara, model.NatureIncome, 999999, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	post(model.RegionSelatan, model.NatureExpense, 999999, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	usage, err := env.budget.GetUsage(ctx, 2025, model.RegionUtara, categoryID)
	require.NoError(t, err)
	require.Nil(t, usage.CeilingID)
	require.Equal(t, int64(0), usage.Ceiling)
	require.Equal(t, int64(400000), usage.Consumed)
	require.Equal(t, int64(-400000), usage.Remaining)
	require.Equal(t, "0.00", usage.Utilisation)

	ceiling, err := env.budget.UpsertCeiling(ctx, UpsertBudgetInput{Year: 2025, Region: model.RegionUtara, CategoryID: categoryID, Amount: 1600000})
	require.NoError(t, err)

	usage, err = env.budget.GetUsage(ctx, 2025, model.RegionUtara, categoryID)
	require.NoError(t, err)
	require.Equal(t, ceiling.ID, *usage.CeilingID)
	require.Equal(t, int64(1200000), usage.Remaining)
	require.Equal(t, "25.00", usage.Utilisation)

	_, err = env.budget.GetUsage(ctx, 2025, "timur", categoryID)
	require.ErrorIs(t, err, ErrValidation)
	_, err = env.budget.GetUsage(ctx, 2025, model.RegionUtara, uuid.Nil)
	require.ErrorIs(t, err, ErrValidation)
}

func TestCheckRequest(t *testing.T) {
	env := newTestEnv()
	ctx := env.as(treasurerActor)
	_, err := env.budget.UpsertCeiling(ctx, UpsertBudgetInput{Year: 2025, Region: model.RegionSelatan, CategoryID: env.category.ID, Amount: 100000})
	require.NoError(t, err)

	warning, err := env.budget.CheckRequest(ctx, 2025, model.RegionSelatan, env.category.ID, 100000)
	require.NoError(t, err)
	require.Nil(t, warning)

	warning, err = env.budget.CheckRequest(ctx, 2025, model.RegionSelatan, env.category.ID, 100001)
	require.NoError(t, err)
	require.NotNil(t, warning)
	require.Contains(t, warning.Message, "100001")

	_, err = env.budget.CheckRequest(ctx, 2025, model.RegionSelatan, env.category.ID, 0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpsertCeilingReplacesAmount(t *testing.T) {
	env := newTestEnv()
	ctx := env.as(adminActor)
	input := UpsertBudgetInput{Year: 2025, Region: model.RegionUtara, CategoryID: env.category.ID, Amount: 500}

	first, err := env.budget.UpsertCeiling(ctx, input)
	require.NoError(t, err)
	input.Amount = 900
	second, err := env.budget.UpsertCeiling(ctx, input)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, int64(900), second.Amount)

	list, err := env.budget.ListUsage(ctx, 2025, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(900), list[0].Ceiling)

	input.Amount = -1
	_, err = env.budget.UpsertCeiling(ctx, input)
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.budget.UpsertCeiling(env.as(residentActor), UpsertBudgetInput{Year: 2025, Region: model.RegionUtara, CategoryID: env.category.ID})
	require.ErrorIs(t, err, ErrForbidden)

	require.ErrorIs(t, env.budget.DeleteCeiling(env.as(chairmanActor), first.ID), ErrForbidden)
	require.NoError(t, env.budget.DeleteCeiling(ctx, first.ID))
	require.ErrorIs(t, env.budget.DeleteCeiling(ctx, first.ID), ErrNotFound)

	list, err = env.budget.ListUsage(ctx, 2025, model.RegionUtara)
	require.NoError(t, err)
	require.Empty(t, list)
	require.Equal(t, []string{
		model.ActionUpsertBudget, model.ActionUpsertBudget, model.ActionDeleteBudget,
	}, env.st.auditActions())
}
