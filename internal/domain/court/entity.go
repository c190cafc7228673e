package court

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrEmptyName     = errors.New("court name cannot be empty")
	ErrCourtInactive = errors.New("court is not open for booking")
)

type Status string

const (
	StatusActive      Status = "active"
	StatusMaintenance Status = "maintenance"
)

// Court is a bookable resource owned by a complex. Immutable as far as
// the scheduling engine is concerned.
type Court struct {
	id        uuid.UUID
	complexID uuid.UUID
	name      string
	status    Status
}

func NewCourt(id, complexID uuid.UUID, name string, status Status) (*Court, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Court{
		id:        id,
		complexID: complexID,
		name:      name,
		status:    status,
	}, nil
}

func (c *Court) Bookable() error {
	if c.status != StatusActive {
		return ErrCourtInactive
	}
	return nil
}

func (c *Court) ID() uuid.UUID        { return c.id }
func (c *Court) ComplexID() uuid.UUID { return c.complexID }
func (c *Court) Name() string         { return c.name }
func (c *Court) Status() Status       { return c.status }
