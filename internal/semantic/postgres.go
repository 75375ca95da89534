package semantic

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// minSimilarity filters out exemplars too far from the question to be useful
// as few-shot examples
const minSimilarity = 0.8

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// PostgresStore implements the Store interface using PostgreSQL + pgvector
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed exemplar store
func NewPostgresStore(config PostgresConfig) (*PostgresStore, error) {
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// Ping tests the database connection
func (ps *PostgresStore) Ping(ctx context.Context) error {
	return ps.db.PingContext(ctx)
}

// Close closes the database connection
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// FindSimilarQuestions finds stored exemplars similar to the given embedding
// using cosine similarity
func (ps *PostgresStore) FindSimilarQuestions(ctx context.Context, embedding []float32, limit int) ([]Exemplar, error) {
	if limit <= 0 {
		limit = 5
	}

	vector := pgvector.NewVector(embedding)

	query := `
		SELECT id, question, sql_text,
		       1 - (embedding <=> $1) as similarity,
		       created_at
		FROM query_exemplars
		WHERE 1 - (embedding <=> $1) > $2
		ORDER BY similarity DESC
		LIMIT $3
	`

	rows, err := ps.db.QueryContext(ctx, query, vector, minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar questions: %w", err)
	}
	defer rows.Close()

	var exemplars []Exemplar
	for rows.Next() {
		var ex Exemplar
		err := rows.Scan(
			&ex.ID,
			&ex.Question,
			&ex.SQL,
			&ex.Similarity,
			&ex.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exemplar row: %w", err)
		}

		exemplars = append(exemplars, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exemplar rows: %w", err)
	}

	return exemplars, nil
}

// StoreExemplar stores a question embedding and its vetted SQL for future
// similarity search
func (ps *PostgresStore) StoreExemplar(ctx context.Context, question string, embedding []float32, sqlText string) error {
	vector := pgvector.NewVector(embedding)

	query := `
		INSERT INTO query_exemplars (id, question, embedding, sql_text, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	_, err := ps.db.ExecContext(ctx, query, uuid.New().String(), question, vector, sqlText)
	if err != nil {
		return fmt.Errorf("failed to store exemplar: %w", err)
	}

	return nil
}

// RecentExemplars returns the most recently stored exemplars, newest first.
// Backs the exemplars listing endpoint.
func (ps *PostgresStore) RecentExemplars(ctx context.Context, limit int) ([]Exemplar, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, question, sql_text, created_at
		FROM query_exemplars
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := ps.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent exemplars: %w", err)
	}
	defer rows.Close()

	var exemplars []Exemplar
	for rows.Next() {
		var ex Exemplar
		if err := rows.Scan(&ex.ID, &ex.Question, &ex.SQL, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exemplar row: %w", err)
		}
		exemplars = append(exemplars, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exemplar rows: %w", err)
	}

	return exemplars, nil
}
