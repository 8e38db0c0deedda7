package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"

	"github.com/gridwatch/dcimpact/pkg/types"
)

var (
	ErrRunNotFound = errors.New("run not found")
	ErrInvalidRun  = errors.New("invalid run")
)

// Database persists forecast runs and their monthly records.
type Database interface {
	// SaveRun stores a run and its records. Saving an existing ID replaces it.
	SaveRun(ctx context.Context, run types.Run, records []types.TimeSeriesRecord) error

	GetRun(ctx context.Context, id string) (types.Run, error)
	// GetLatestRun returns the most recently created run.
	GetLatestRun(ctx context.Context) (types.Run, error)
	// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]types.Run, error)
	GetRecords(ctx context.Context, id string) ([]types.TimeSeriesRecord, error)

	// Lifecycle
	Close() error
}

// NewRunID returns a random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// ValidateRunID reports whether id looks like a run identifier.
func ValidateRunID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: bad id %q", ErrInvalidRun, id)
	}
	return nil
}

func validateRun(run types.Run) error {
	if err := ValidateRunID(run.ID); err != nil {
		return err
	}
	if run.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing createdAt", ErrInvalidRun)
	}
	return nil
}

// Configured sets up the Storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "memory", "Storage provider to use (available: firestore, memory)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "memory":
			p.Database = NewMemory()
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
