package bigquery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-insights/internal/domain"
	"github.com/dvloznov/finance-insights/internal/model"
)

// Repository reads user history from BigQuery and records model outputs.
// It holds a shared BigQuery client to avoid creating a new connection for
// each operation.
type Repository struct {
	client  *bigquery.Client
	dataset Dataset
}

// NewRepository creates a Repository with a shared BigQuery client for
// project, reading tables from dataset.
func NewRepository(ctx context.Context, project, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return NewRepositoryWithClient(client, Dataset{Project: project, Name: dataset}), nil
}

// NewRepositoryWithClient wraps an existing client.
func NewRepositoryWithClient(client *bigquery.Client, ds Dataset) *Repository {
	return &Repository{client: client, dataset: ds}
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Transactions returns a user's spending between start and end inclusive.
// Rows that fail validation are logged and skipped.
func (r *Repository) Transactions(ctx context.Context, userID string, start, end civil.Date) ([]domain.Transaction, error) {
	rows, err := QueryTransactionsWithClient(ctx, r.client, r.dataset, userID, start, end)
	if err != nil {
		return nil, err
	}
	return toTransactions(ctx, rows), nil
}

// Goals returns every valid goal a user owns.
func (r *Repository) Goals(ctx context.Context, userID string) ([]domain.Goal, error) {
	rows, err := QueryGoalsWithClient(ctx, r.client, r.dataset, userID)
	if err != nil {
		return nil, err
	}
	return toGoals(ctx, rows), nil
}

// Incomes returns a user's income receipts on or after since.
func (r *Repository) Incomes(ctx context.Context, userID string, since civil.Date) ([]domain.IncomeRecord, error) {
	rows, err := QueryIncomesWithClient(ctx, r.client, r.dataset, userID, since)
	if err != nil {
		return nil, err
	}
	out := make([]domain.IncomeRecord, len(rows))
	for i, row := range rows {
		out[i] = row.ToIncome()
	}
	return out, nil
}

// ActiveUsers delegates to ListActiveUsersWithClient with the shared client.
func (r *Repository) ActiveUsers(ctx context.Context, since civil.Date) ([]string, error) {
	return ListActiveUsersWithClient(ctx, r.client, r.dataset, since)
}

// RecordOutput inserts out into model_outputs.
func (r *Repository) RecordOutput(ctx context.Context, out model.Output) error {
	row, err := NewModelOutputRow(out)
	if err != nil {
		return err
	}
	return InsertModelOutputWithClient(ctx, r.client, r.dataset, row)
}

// NewModelOutputRow serialises out into a row with a fresh output_id.
func NewModelOutputRow(out model.Output) (*ModelOutputRow, error) {
	raw, err := json.Marshal(out.Payload)
	if err != nil {
		return nil, fmt.Errorf("NewModelOutputRow: marshal payload: %w", err)
	}

	created := out.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	row := &ModelOutputRow{
		OutputID:   uuid.NewString(),
		UserID:     out.UserID,
		ModelName:  out.ModelName,
		OutputType: out.Type,
		Status:     string(out.Status),
		RawJSON:    bigquery.NullJSON{JSONVal: string(raw), Valid: true},
		CreatedTS:  bigquery.NullTimestamp{Timestamp: created, Valid: true},
	}
	if out.Version != "" {
		row.ModelVersion = bigquery.NullString{StringVal: out.Version, Valid: true}
	}
	if len(out.Metadata) > 0 {
		meta, err := json.Marshal(out.Metadata)
		if err != nil {
			return nil, fmt.Errorf("NewModelOutputRow: marshal metadata: %w", err)
		}
		row.Metadata = bigquery.NullJSON{JSONVal: string(meta), Valid: true}
	}
	return row, nil
}
