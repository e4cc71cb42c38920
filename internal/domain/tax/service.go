package tax

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hrm-payroll/internal/platform/cache"
)

const slabCacheTTL = 30 * time.Minute

// SlabService manages slab sets and serves cached lookups for computation.
type SlabService struct {
	store SlabStore
	cache cache.Cache
}

func NewSlabService(store SlabStore, c cache.Cache) *SlabService {
	if c == nil {
		c = cache.Noop{}
	}
	return &SlabService{store: store, cache: c}
}

func slabCacheKey(regime Regime, financialYear string) string {
	return fmt.Sprintf("taxslabs:%s:%s", regime, financialYear)
}

func (s *SlabService) Save(ctx context.Context, set SlabSet) (SlabSet, error) {
	regime, err := ParseRegime(string(set.Regime))
	if err != nil {
		return SlabSet{}, err
	}
	set.Regime = regime
	if err := set.Validate(); err != nil {
		return SlabSet{}, err
	}
	set.Slabs = sortedSlabs(set.Slabs)
	saved, err := s.store.UpsertSlabSet(ctx, set)
	if err != nil {
		return SlabSet{}, err
	}
	s.invalidate(ctx, regime, set.FinancialYear)
	slog.InfoContext(ctx, "tax slab set saved", "regime", regime, "financialYear", set.FinancialYear, "slabs", len(saved.Slabs))
	return saved, nil
}

func (s *SlabService) Get(ctx context.Context, regime Regime, financialYear string) (SlabSet, error) {
	return s.store.GetSlabSet(ctx, regime, financialYear)
}

func (s *SlabService) List(ctx context.Context) ([]SlabSet, error) {
	return s.store.ListSlabSets(ctx)
}

func (s *SlabService) Delete(ctx context.Context, regime Regime, financialYear string) error {
	if err := s.store.DeleteSlabSet(ctx, regime, financialYear); err != nil {
		return err
	}
	s.invalidate(ctx, regime, financialYear)
	return nil
}

// SlabsFor implements SlabSource.
func (s *SlabService) SlabsFor(ctx context.Context, regime Regime, financialYear string) ([]Slab, error) {
	var set SlabSet
	err := s.cache.Load(ctx, slabCacheKey(regime, financialYear), slabCacheTTL, &set, func(ctx context.Context) (any, error) {
		return s.store.GetSlabSet(ctx, regime, financialYear)
	})
	if errors.Is(err, ErrSlabSetNotFound) {
		return nil, ErrNoApplicableSlabSet.With("no tax slabs configured for regime %s and financial year %s", regime, financialYear)
	}
	if err != nil {
		return nil, err
	}
	if len(set.Slabs) == 0 {
		return nil, ErrNoApplicableSlabSet.With("no tax slabs configured for regime %s and financial year %s", regime, financialYear)
	}
	return set.Slabs, nil
}

func (s *SlabService) invalidate(ctx context.Context, regime Regime, financialYear string) {
	if err := s.cache.Invalidate(ctx, slabCacheKey(regime, financialYear)); err != nil {
		slog.WarnContext(ctx, "slab cache invalidation failed", "regime", regime, "financialYear", financialYear, "err", err)
	}
}
