package db

import "github.com/ceyewan/leaf/xerrors"

var (
	ErrInvalidConfig     = xerrors.New("db: invalid config")
	ErrConnectorRequired = xerrors.New("db: connector is required")
	ErrNotConnected      = xerrors.New("db: connector is not connected")
)
