package handlers

import (
	"database/sql"

	"github.com/voxcraft/voxcraft-golang/internal/credits"
	"github.com/voxcraft/voxcraft-golang/internal/generation"
	"github.com/voxcraft/voxcraft-golang/internal/history"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB        *sql.DB             // connection pool, used directly for account rows
	Ledger    *credits.Ledger     // credit balance reads/mutations
	Generator *generation.Service // the credit-metered generation workflow
	History   *history.Recorder   // generated-clip records + presigned URLs
}
