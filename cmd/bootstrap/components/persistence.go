package components

import (
	"courtdesk/internal/infra/pg"
	"courtdesk/internal/infra/readstore"
	"courtdesk/internal/infra/uow"
	"courtdesk/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewDBTX,
		uow.NewPostgresUoW,
		// Read-side store for queries
		fx.Annotate(
			readstore.NewReservationReadStore,
			fx.As(new(queries.BookingReadStore)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) pg.DBTX {
	return pool
}
