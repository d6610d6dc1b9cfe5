package dataset

import (
	"context"
	"fmt"

	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"gorm.io/gorm"
)

// Loader turns a dataset location into ordered, immutable record slices.
type Loader interface {
	LoadSearch(ctx context.Context) ([]models.SearchRecord, error)
	LoadMatching(ctx context.Context) ([]models.MatchingRecord, error)
	Describe(task models.TaskType) string
}

// CSVLoader parses CSV exports opened from a Source.
type CSVLoader struct {
	source Source
}

func NewCSVLoader(source Source) *CSVLoader {
	return &CSVLoader{source: source}
}

func (l *CSVLoader) LoadSearch(ctx context.Context) ([]models.SearchRecord, error) {
	rc, err := l.source.Open(ctx, models.TaskSearch)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseSearchCSV(rc)
}

func (l *CSVLoader) LoadMatching(ctx context.Context) ([]models.MatchingRecord, error) {
	rc, err := l.source.Open(ctx, models.TaskMatching)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseMatchingCSV(rc)
}

func (l *CSVLoader) Describe(task models.TaskType) string {
	return l.source.Describe(task)
}

// PostgresLoader reads datasets imported into the search_records and
// matching_records tables, ordered by row_index.
type PostgresLoader struct {
	db *gorm.DB
}

func NewPostgresLoader(db *gorm.DB) *PostgresLoader {
	return &PostgresLoader{db: db}
}

func (l *PostgresLoader) LoadSearch(ctx context.Context) ([]models.SearchRecord, error) {
	var rows []models.SearchRecordRow
	if err := l.db.WithContext(ctx).Order("row_index ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load search records: %w", err)
	}
	records := make([]models.SearchRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.SearchRecord)
	}
	return records, nil
}

func (l *PostgresLoader) LoadMatching(ctx context.Context) ([]models.MatchingRecord, error) {
	var rows []models.MatchingRecordRow
	if err := l.db.WithContext(ctx).Order("row_index ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load matching records: %w", err)
	}
	records := make([]models.MatchingRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record())
	}
	return records, nil
}

func (l *PostgresLoader) Describe(task models.TaskType) string {
	switch task {
	case models.TaskSearch:
		return "postgres://" + models.SearchRecordRow{}.TableName()
	case models.TaskMatching:
		return "postgres://" + models.MatchingRecordRow{}.TableName()
	}
	return "postgres://"
}
