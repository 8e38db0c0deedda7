package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gridwatch/dcimpact/pkg/log"
	"github.com/gridwatch/dcimpact/pkg/types"
)

const (
	runsCollection    = "runs"
	recordsCollection = "records"
)

// FirestoreProvider implements Database using Google Cloud Firestore.
// Runs live in "runs/{id}" and their monthly records in
// "runs/{id}/records/{YYYY-MM}". Every document stores its payload as a JSON
// string next to a "timestamp" and "version" field.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
}

var _ Database = (*FirestoreProvider)(nil)

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// empty project is allowed, it is detected from credentials
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// SaveRun writes the run document and all of its records in one transaction.
func (f *FirestoreProvider) SaveRun(ctx context.Context, run types.Run, records []types.TimeSeriesRecord) error {
	if err := validateRun(run); err != nil {
		return err
	}
	if run.Version == 0 {
		run.Version = types.CurrentRunVersion
	}
	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	runRef := f.client.Collection(runsCollection).Doc(run.ID)
	err = f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(runRef, map[string]interface{}{
			"json":      string(runJSON),
			"timestamp": run.CreatedAt,
			"version":   run.Version,
		}); err != nil {
			return err
		}
		for _, r := range records {
			b, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to marshal record %s: %w", r.Date.Format(types.MonthFormat), err)
			}
			ref := runRef.Collection(recordsCollection).Doc(r.Date.UTC().Format(types.MonthFormat))
			if err := tx.Set(ref, map[string]interface{}{
				"json":      string(b),
				"timestamp": r.Date,
				"version":   run.Version,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun retrieves a single run document.
func (f *FirestoreProvider) GetRun(ctx context.Context, id string) (types.Run, error) {
	if id == "" {
		return types.Run{}, fmt.Errorf("%w: empty id", ErrInvalidRun)
	}
	doc, err := f.client.Collection(runsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return types.Run{}, fmt.Errorf("failed to fetch run doc: %w", err)
	}
	return decodeRun(ctx, doc)
}

// GetLatestRun retrieves the run with the newest timestamp.
func (f *FirestoreProvider) GetLatestRun(ctx context.Context) (types.Run, error) {
	runs, err := f.ListRuns(ctx, 1)
	if err != nil {
		return types.Run{}, err
	}
	if len(runs) == 0 {
		return types.Run{}, ErrRunNotFound
	}
	return runs[0], nil
}

// ListRuns retrieves runs ordered by timestamp, newest first.
func (f *FirestoreProvider) ListRuns(ctx context.Context, limit int) ([]types.Run, error) {
	q := f.client.Collection(runsCollection).OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var runs []types.Run
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating runs: %w", err)
		}
		run, err := decodeRun(ctx, doc)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// GetRecords retrieves the monthly records of a run in date order.
func (f *FirestoreProvider) GetRecords(ctx context.Context, id string) ([]types.TimeSeriesRecord, error) {
	if _, err := f.GetRun(ctx, id); err != nil {
		return nil, err
	}
	iter := f.client.Collection(runsCollection).Doc(id).Collection(recordsCollection).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var records []types.TimeSeriesRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating records: %w", err)
		}
		var r types.TimeSeriesRecord
		if err := decodeJSON(ctx, doc, &r); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func decodeRun(ctx context.Context, doc *firestore.DocumentSnapshot) (types.Run, error) {
	var run types.Run
	if err := decodeJSON(ctx, doc, &run); err != nil {
		return types.Run{}, err
	}
	// Read version if available (default 0)
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			run.Version = int(vInt)
		}
	}
	return run, nil
}

func decodeJSON(ctx context.Context, doc *firestore.DocumentSnapshot, v any) error {
	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "doc missing json", slog.String("path", doc.Ref.Path), slog.Any("err", err))
		return fmt.Errorf("document %s missing 'json' field: %w", doc.Ref.ID, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "doc json not string", slog.String("path", doc.Ref.Path))
		return fmt.Errorf("document %s 'json' field is not string", doc.Ref.ID)
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal doc", slog.String("path", doc.Ref.Path), slog.Any("err", err))
		return fmt.Errorf("failed to unmarshal document (id=%s): %w", doc.Ref.ID, err)
	}
	return nil
}
