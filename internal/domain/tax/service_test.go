package tax

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlabStore struct {
	sets    map[string]SlabSet
	getHits int
}

func (f *fakeSlabStore) UpsertSlabSet(_ context.Context, set SlabSet) (SlabSet, error) {
	f.sets[string(set.Regime)+"/"+set.FinancialYear] = set
	return set, nil
}

func (f *fakeSlabStore) GetSlabSet(_ context.Context, regime Regime, financialYear string) (SlabSet, error) {
	f.getHits++
	set, ok := f.sets[string(regime)+"/"+financialYear]
	if !ok {
		return SlabSet{}, ErrSlabSetNotFound
	}
	return set, nil
}

func (f *fakeSlabStore) ListSlabSets(context.Context) ([]SlabSet, error) {
	out := make([]SlabSet, 0, len(f.sets))
	for _, set := range f.sets {
		out = append(out, set)
	}
	return out, nil
}

func (f *fakeSlabStore) DeleteSlabSet(_ context.Context, regime Regime, financialYear string) error {
	key := string(regime) + "/" + financialYear
	if _, ok := f.sets[key]; !ok {
		return ErrSlabSetNotFound
	}
	delete(f.sets, key)
	return nil
}

func TestSlabServiceSaveNormalizesAndValidates(t *testing.T) {
	store := &fakeSlabStore{sets: map[string]SlabSet{}}
	svc := NewSlabService(store, nil)

	slabs := standardSlabs()
	slabs[0], slabs[2] = slabs[2], slabs[0]
	saved, err := svc.Save(context.Background(), SlabSet{Regime: "old", FinancialYear: "2024-25", Slabs: slabs})
	require.NoError(t, err)
	assert.Equal(t, RegimeOld, saved.Regime)
	assert.True(t, saved.Slabs[0].Min.IsZero())

	_, err = svc.Save(context.Background(), SlabSet{Regime: RegimeOld, FinancialYear: "2024-25", Slabs: standardSlabs()[:2]})
	assert.True(t, errors.Is(err, ErrInvalidSlabSet))
}

func TestSlabsForMissingIsComputationError(t *testing.T) {
	store := &fakeSlabStore{sets: map[string]SlabSet{}}
	svc := NewSlabService(store, nil)

	_, err := svc.SlabsFor(context.Background(), RegimeNew, "2025-26")
	assert.True(t, errors.Is(err, ErrNoApplicableSlabSet))

	_, err = svc.Get(context.Background(), RegimeNew, "2025-26")
	assert.True(t, errors.Is(err, ErrSlabSetNotFound))
}

func TestSlabServiceDelete(t *testing.T) {
	store := &fakeSlabStore{sets: map[string]SlabSet{}}
	svc := NewSlabService(store, nil)
	_, err := svc.Save(context.Background(), SlabSet{Regime: RegimeNew, FinancialYear: "2024-25", Slabs: standardSlabs()})
	require.NoError(t, err)

	slabs, err := svc.SlabsFor(context.Background(), RegimeNew, "2024-25")
	require.NoError(t, err)
	assert.Len(t, slabs, 3)

	require.NoError(t, svc.Delete(context.Background(), RegimeNew, "2024-25"))
	_, err = svc.SlabsFor(context.Background(), RegimeNew, "2024-25")
	assert.True(t, errors.Is(err, ErrNoApplicableSlabSet))
}
