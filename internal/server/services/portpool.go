// Package services contains the lease subsystem: the SSH port pool, the
// rented-device registry, credential rotation, listing lifecycle management
// and the orchestrator tying them together.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/p2pvps/marketd/internal/dbx"
	"github.com/p2pvps/marketd/internal/logging"
	"github.com/p2pvps/marketd/internal/server/config"
	"github.com/p2pvps/marketd/internal/server/repositories/repomanager"
)

// PortPool hands out SSH ports from the bounded range [base, ceiling].
// Allocation is strictly sequential: the next port is last+1, wrapping back
// to base once the ceiling has been handed out.
//
// The wrap does not check whether the reused port is still allocated; that
// matches the historical allocator this replaces, and callers releasing ports
// on every renewal keep the window harmless in practice.
//
// All mutations run under a pool-wide mutex and inside one DB transaction, so
// concurrent registrations cannot observe the same "last port" and
// double-allocate.
type PortPool struct {
	mu     sync.Mutex
	db     *sql.DB
	repos  repomanager.RepositoryManager
	base   int
	ceil   int
	logger logging.Logger
}

func NewPortPool(db *sql.DB, repos repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *PortPool {
	return &PortPool{
		db:     db,
		repos:  repos,
		base:   cfg.PortBase,
		ceil:   cfg.PortCeiling,
		logger: logger.With("component", "portpool"),
	}
}

// Allocate reserves the next port in the sequence and returns it. A failed
// allocation consumes nothing: the append and the read of the previous port
// happen in the same transaction.
func (p *PortPool) Allocate(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var newPort int
	err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := p.repos.Ports(tx)

		last, ok, err := repo.LastAllocated(ctx)
		if err != nil {
			return err
		}

		switch {
		case !ok:
			// First allocation ever.
			newPort = p.base
		case last >= p.ceil:
			// Wrap around to the base once the ceiling has been reached.
			newPort = p.base
		default:
			newPort = last + 1
		}

		return repo.Append(ctx, newPort)
	})
	if err != nil {
		return 0, fmt.Errorf("allocate port: %w", err)
	}

	p.logger.Debug(ctx, "allocated port", "port", newPort)
	return newPort, nil
}

// Release returns a previously allocated port to the pool. Releasing a port
// that is not allocated fails with common.ErrNotFound; release is not
// idempotent and callers must track whether it already happened.
func (p *PortPool) Release(ctx context.Context, port int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return p.repos.Ports(tx).Remove(ctx, port)
	})
	if err != nil {
		return err
	}

	p.logger.Debug(ctx, "released port", "port", port)
	return nil
}

// Used returns the allocated ports in allocation order.
func (p *PortPool) Used(ctx context.Context) ([]int, error) {
	return p.repos.Ports(p.db).Used(ctx)
}
