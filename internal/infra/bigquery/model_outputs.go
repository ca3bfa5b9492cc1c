package bigquery

import "cloud.google.com/go/bigquery"

// ModelOutputRow records one insight result produced for a user.
type ModelOutputRow struct {
	OutputID string `bigquery:"output_id"` // REQUIRED
	UserID   string `bigquery:"user_id"`   // REQUIRED

	ModelName    string              `bigquery:"model_name"`    // REQUIRED
	ModelVersion bigquery.NullString `bigquery:"model_version"` // NULLABLE
	OutputType   string              `bigquery:"output_type"`   // REQUIRED, e.g. spending_forecast
	Status       string              `bigquery:"status"`        // REQUIRED

	RawJSON bigquery.NullJSON `bigquery:"raw_json"` // REQUIRED (JSON)

	CreatedTS bigquery.NullTimestamp `bigquery:"created_ts"` // REQUIRED (default CURRENT_TIMESTAMP)

	Metadata bigquery.NullJSON `bigquery:"metadata"` // NULLABLE
}
