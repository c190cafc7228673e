package components

import (
	"courtdesk/internal/pkg/clock"
	"courtdesk/internal/usecase/commands"
	"courtdesk/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		queries.NewBookingQueries,
		commands.NewBookingCommands,
	),
)
