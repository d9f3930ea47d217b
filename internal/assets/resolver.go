package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"sync"

	"github.com/Corner-Boxing/corner-backend/internal/model"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrEmptyPool        = errors.New("pool has no eligible clips")
	ErrPoolNotFound     = errors.New("pool not found")
)

// Resolver turns cue requests into concrete clip refs, either by fixed path
// or by uniform random choice from a category pool.
type Resolver struct {
	repo     Repository
	manifest Manifest

	mu  sync.Mutex
	rng *rand.Rand
}

// NewResolver creates a resolver. A nil rng uses the process-wide source.
func NewResolver(repo Repository, manifest Manifest, rng *rand.Rand) *Resolver {
	return &Resolver{
		repo:     repo,
		manifest: manifest,
		rng:      rng,
	}
}

// Fixed confirms that ref exists and returns it.
func (r *Resolver) Fixed(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrResourceNotFound)
	}
	ok, err := r.repo.Exists(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("check %s: %w", ref, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrResourceNotFound, ref)
	}
	return ref, nil
}

// Countdown resolves the clip for a countdown variant.
func (r *Resolver) Countdown(ctx context.Context, variant model.CountdownVariant) (string, error) {
	return r.Fixed(ctx, r.manifest.Countdown(variant))
}

// Pick returns one eligible clip from the category's pool, chosen uniformly
// and independently on every call.
func (r *Resolver) Pick(ctx context.Context, category string) (string, error) {
	dir, ok := r.manifest.Pools[category]
	if !ok || dir == "" {
		return "", fmt.Errorf("%w: %q", ErrPoolNotFound, category)
	}
	refs, err := r.repo.List(ctx, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %q (%s)", ErrPoolNotFound, category, dir)
		}
		return "", fmt.Errorf("list pool %q: %w", category, err)
	}

	eligible := refs[:0:0]
	for _, ref := range refs {
		if r.manifest.Eligible(ref) {
			eligible = append(eligible, ref)
		}
	}
	if len(eligible) == 0 {
		return "", fmt.Errorf("%w: %q (%s)", ErrEmptyPool, category, dir)
	}
	return eligible[r.intN(len(eligible))], nil
}

func (r *Resolver) intN(n int) int {
	if r.rng == nil {
		return rand.IntN(n)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}
