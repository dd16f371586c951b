package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/mkurosawa/addrsearch/pkg/postgres"
)

// PostgresSource loads the corpus from a relational table instead of a CSV
// file. Rows are ordered by a caller-chosen column so record IDs stay stable
// across reloads of an unchanged table.
type PostgresSource struct {
	client  *postgres.Client
	table   string
	columns []string
	orderBy string
	logger  *slog.Logger
}

// NewPostgresSource creates a source reading the given columns from table,
// ordered by orderBy.
func NewPostgresSource(client *postgres.Client, table string, columns []string, orderBy string) *PostgresSource {
	return &PostgresSource{
		client:  client,
		table:   table,
		columns: columns,
		orderBy: orderBy,
		logger:  slog.Default().With("component", "corpus-loader", "source", "postgres"),
	}
}

// Load reads the full table into a Corpus. NULL cells become absent fields,
// matching the schema tolerance of the CSV loader.
func (s *PostgresSource) Load(ctx context.Context) (Corpus, error) {
	quoted := make([]string, len(s.columns))
	for i, col := range s.columns {
		quoted[i] = pq.QuoteIdentifier(col)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "),
		pq.QuoteIdentifier(s.table),
		pq.QuoteIdentifier(s.orderBy),
	)

	rows, err := s.client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying corpus table %s: %w", s.table, err)
	}
	defer rows.Close()

	var records Corpus
	values := make([]sql.NullString, len(s.columns))
	scanArgs := make([]any, len(s.columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	for id := 0; rows.Next(); id++ {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("scanning corpus row %d: %w", id, err)
		}
		fields := make(map[string]string, len(s.columns))
		for i, col := range s.columns {
			if values[i].Valid {
				fields[col] = values[i].String
			}
		}
		records = append(records, Record{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corpus rows: %w", err)
	}
	s.logger.Info("corpus loaded from postgres", "table", s.table, "records", len(records))
	return records, nil
}
