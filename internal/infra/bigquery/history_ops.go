package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

const (
	transactionsTable       = "transactions"
	emotionAnnotationsTable = "emotion_annotations"
	goalsTable              = "goals"
	incomesTable            = "incomes"
	modelOutputsTable       = "model_outputs"
)

// Dataset addresses one BigQuery dataset.
type Dataset struct {
	Project string
	Name    string
}

// Table returns the back-quoted, fully qualified name of table.
func (d Dataset) Table(table string) string {
	return "`" + d.Project + "." + d.Name + "." + table + "`"
}

// QueryTransactionsWithClient returns a user's spending between start and
// end inclusive, each joined with its emotion annotation when one exists.
// Credits and internal transfers are excluded and amounts are absolute.
func QueryTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, start, end civil.Date) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.user_id,
			t.transaction_date,
			t.transaction_time,
			ABS(t.amount) AS amount,
			t.category_name,
			t.merchant,
			t.payment_method,
			e.primary_emotion,
			e.intensity,
			e.stress_level,
			e.was_urgent,
			e.was_necessary,
			e.is_asset,
			e.reason,
			e.time_of_day,
			e.day_type,
			e.emotional_trigger,
			e.regret_level,
			e.brought_joy,
			e.would_buy_again
		FROM %s t
		LEFT JOIN %s e
		  ON e.transaction_id = t.transaction_id
		WHERE t.user_id = @user_id
		  AND t.transaction_date >= @start_date
		  AND t.transaction_date <= @end_date
		  AND COALESCE(t.direction, 'DEBIT') = 'DEBIT'
		  AND NOT COALESCE(t.is_internal_transfer, FALSE)
		ORDER BY t.transaction_date, t.transaction_id
	`, ds.Table(transactionsTable), ds.Table(emotionAnnotationsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	rows, err := readAll[TransactionRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactions: %w", err)
	}
	return rows, nil
}

// QueryGoalsWithClient returns every goal a user owns.
func QueryGoalsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*GoalRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			goal_id,
			user_id,
			name,
			target_amount,
			current_amount,
			monthly_allocation,
			deadline,
			created_date,
			priority,
			is_mandatory
		FROM %s
		WHERE user_id = @user_id
		ORDER BY created_date, goal_id
	`, ds.Table(goalsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	rows, err := readAll[GoalRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("QueryGoals: %w", err)
	}
	return rows, nil
}

// QueryIncomesWithClient returns a user's income receipts on or after since.
func QueryIncomesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string, since civil.Date) ([]*IncomeRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT user_id, income_date, amount, source
		FROM %s
		WHERE user_id = @user_id
		  AND income_date >= @since
		ORDER BY income_date
	`, ds.Table(incomesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "since", Value: since},
	}

	rows, err := readAll[IncomeRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("QueryIncomes: %w", err)
	}
	return rows, nil
}

// ListActiveUsersWithClient returns the users with at least one transaction
// on or after since.
func ListActiveUsersWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, since civil.Date) ([]string, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT DISTINCT user_id
		FROM %s
		WHERE transaction_date >= @since
		  AND user_id IS NOT NULL
		ORDER BY user_id
	`, ds.Table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "since", Value: since},
	}

	type userRow struct {
		UserID string `bigquery:"user_id"`
	}
	rows, err := readAll[userRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListActiveUsers: %w", err)
	}
	users := make([]string, len(rows))
	for i, r := range rows {
		users[i] = r.UserID
	}
	return users, nil
}

func readAll[T any](ctx context.Context, q *bigquery.Query) ([]*T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []*T
	for {
		var r T
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
