package uow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"courtdesk/internal/domain/schedule"
	"courtdesk/internal/infra"
	"courtdesk/internal/infra/pg"
	"courtdesk/internal/infra/readstore"
	"courtdesk/internal/infra/repository"
	"courtdesk/internal/pkg/errs"
	"courtdesk/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
)

var (
	errTransactionBegin   = errs.New("failed to begin transaction")
	errTransactionCommit  = errs.New("failed to commit transaction")
	errMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

type PostgresUoW struct {
	pool *pgxpool.Pool
}

func NewPostgresUoW(pool *pgxpool.Pool) shared.UnitOfWork {
	return &PostgresUoW{pool: pool}
}

// ReadCommitted prevents dirty reads while allowing concurrent writes;
// the exclusion constraint on reservations is what makes the
// check-then-insert of a slot safe across transactions.
func (u *PostgresUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return u.runInTxWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (u *PostgresUoW) WithDB(ctx context.Context, fn func(ctx context.Context, db pg.DBTX) error) error {
	return fn(ctx, u.pool)
}

func (u *PostgresUoW) CommandReads() shared.CommandReads {
	return &commandReads{dbtx: u.pool}
}

// Avoids defer accumulation in retry loops to prevent connection leaks
func (u *PostgresUoW) runInTxWithOptions(ctx context.Context, options pgx.TxOptions, fn func(ctx context.Context, tx shared.Tx) error) error {
	const maxRetries = 3
	base := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		pgxTx, err := u.pool.BeginTx(ctx, options)
		if err != nil {
			return errs.Mark(err, errTransactionBegin)
		}

		tx := &pgTx{dbtx: pgxTx}

		err = fn(ctx, tx)
		if err == nil {
			if err = pgxTx.Commit(ctx); err == nil {
				return nil
			}
			err = classifyCommitErr(err)
		}

		if rollbackErr := pgxTx.Rollback(ctx); rollbackErr != nil {
			if !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				slog.Warn("rollback failed", "attempt", attempt+1, "error", rollbackErr.Error())
			}
		}

		if !shouldRetry(err, attempt, maxRetries) {
			if attempt == maxRetries {
				slog.Error("transaction failed after max retries",
					"attempts", attempt+1,
					"error", err.Error())
				return errs.Mark(err, errMaxRetriesExceeded)
			}
			return err
		}

		waitTime := calculateBackoff(attempt, base)

		slog.Warn("retrying transaction due to retryable error",
			"attempt", attempt+1,
			"wait_ms", waitTime.Milliseconds(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}

	return errMaxRetriesExceeded
}

// classifyCommitErr keeps constraint violations surfaced at commit time
// (deferred checks, concurrent inserts) on the same RepositoryError path
// the repositories use.
func classifyCommitErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return infra.WrapRepoErr("failed to commit transaction", err)
	}
	return errs.Mark(err, errTransactionCommit)
}

func shouldRetry(err error, attempt, maxRetries int) bool {
	return isRetryableError(err) && attempt < maxRetries
}

func calculateBackoff(attempt int, base time.Duration) time.Duration {
	waitTime := time.Duration(1<<attempt) * base
	jitter := cryptoRandInt63n(int64(waitTime / 5))
	return waitTime + time.Duration(jitter)
}

func cryptoRandInt63n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Fallback to a simple calculation if crypto/rand fails
		return 0
	}
	// Safe conversion: mask high bit to ensure positive int64
	uval := binary.BigEndian.Uint64(buf[:]) & 0x7FFFFFFFFFFFFFFF
	// #nosec G115 -- Intentionally safe conversion after masking
	return int64(uval) % n
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected:
		return true
	default:
		return false
	}
}

type pgTx struct {
	dbtx pg.DBTX

	// Lazy-initialized repositories
	reservationRepo shared.ReservationRepository
	groupRepo       shared.RecurringGroupRepository
	idempotencyRepo shared.IdempotencyRepository
	outboxRepo      shared.OutboxRepository
	commandReads    shared.CommandReads
}

func (t *pgTx) DB() pg.DBTX {
	return t.dbtx
}

func (t *pgTx) Reservations() shared.ReservationRepository {
	if t.reservationRepo == nil {
		t.reservationRepo = repository.NewReservationRepository(t.dbtx)
	}
	return t.reservationRepo
}

func (t *pgTx) Groups() shared.RecurringGroupRepository {
	if t.groupRepo == nil {
		t.groupRepo = repository.NewRecurringGroupRepository(t.dbtx)
	}
	return t.groupRepo
}

func (t *pgTx) Idempotency() shared.IdempotencyRepository {
	if t.idempotencyRepo == nil {
		t.idempotencyRepo = repository.NewIdempotencyRepository(t.dbtx)
	}
	return t.idempotencyRepo
}

func (t *pgTx) Outbox() shared.OutboxRepository {
	if t.outboxRepo == nil {
		t.outboxRepo = repository.NewOutboxRepository(t.dbtx)
	}
	return t.outboxRepo
}

func (t *pgTx) Reads() shared.CommandReads {
	if t.commandReads == nil {
		t.commandReads = &commandReads{dbtx: t.dbtx}
	}
	return t.commandReads
}

type commandReads struct {
	dbtx pg.DBTX

	// Lazy-initialized readstores
	courtStore       *readstore.CourtReadStore
	clientStore      *readstore.ClientReadStore
	reservationStore *readstore.ReservationReadStore
	tabStore         *readstore.TabReadStore
	idempotencyStore *readstore.IdempotencyReadStore
}

func (r *commandReads) CourtByID(ctx context.Context, id uuid.UUID) (*shared.CourtSnapshot, error) {
	if r.courtStore == nil {
		r.courtStore = readstore.NewCourtReadStore(r.dbtx)
	}
	return r.courtStore.FindByID(ctx, id)
}

func (r *commandReads) ClientByID(ctx context.Context, id uuid.UUID) (*shared.ClientSnapshot, error) {
	if r.clientStore == nil {
		r.clientStore = readstore.NewClientReadStore(r.dbtx)
	}
	return r.clientStore.FindByID(ctx, id)
}

func (r *commandReads) ReservationByID(ctx context.Context, id uuid.UUID) (*shared.ReservationSnapshot, error) {
	return r.reservations().SnapshotByID(ctx, id)
}

func (r *commandReads) GroupByID(ctx context.Context, id uuid.UUID) (*shared.GroupSnapshot, error) {
	return r.reservations().GroupSnapshotByID(ctx, id)
}

func (r *commandReads) FirstOverlapping(ctx context.Context, courtID uuid.UUID, iv schedule.Interval, excludeID *uuid.UUID) (*shared.OverlapSnapshot, error) {
	slot, err := r.reservations().FirstOverlapping(ctx, courtID, iv, excludeID)
	if err != nil || slot == nil {
		return nil, err
	}
	return &shared.OverlapSnapshot{
		ID:         slot.ReservationID,
		ClientName: slot.ClientName,
		StartsAt:   slot.StartsAt,
		EndsAt:     slot.EndsAt,
	}, nil
}

func (r *commandReads) HasOpenTab(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	if r.tabStore == nil {
		r.tabStore = readstore.NewTabReadStore(r.dbtx)
	}
	return r.tabStore.HasOpen(ctx, reservationID)
}

func (r *commandReads) IdempotencyByKey(ctx context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	if r.idempotencyStore == nil {
		r.idempotencyStore = readstore.NewIdempotencyReadStore(r.dbtx)
	}
	return r.idempotencyStore.FindByKey(ctx, key, userID)
}

func (r *commandReads) reservations() *readstore.ReservationReadStore {
	if r.reservationStore == nil {
		r.reservationStore = readstore.NewReservationReadStore(r.dbtx)
	}
	return r.reservationStore
}
