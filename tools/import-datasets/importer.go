package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/yashrajoria/markup-backend/services/markup-service/dataset"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"gorm.io/gorm"
)

// datasetFiles holds the raw CSV bytes alongside the parsed records so a file
// is uploaded exactly as it was validated.
type datasetFiles struct {
	searchRaw   []byte
	matchingRaw []byte
	search      []models.SearchRecord
	matching    []models.MatchingRecord
}

func readDatasets(searchPath, matchingPath string) (*datasetFiles, error) {
	files := &datasetFiles{}
	if searchPath != "" {
		raw, err := os.ReadFile(searchPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", searchPath, err)
		}
		records, err := dataset.ParseSearchCSV(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", searchPath, err)
		}
		files.searchRaw, files.search = raw, records
	}
	if matchingPath != "" {
		raw, err := os.ReadFile(matchingPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", matchingPath, err)
		}
		records, err := dataset.ParseMatchingCSV(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", matchingPath, err)
		}
		files.matchingRaw, files.matching = raw, records
	}
	return files, nil
}

func searchRows(records []models.SearchRecord) []models.SearchRecordRow {
	rows := make([]models.SearchRecordRow, len(records))
	for i, r := range records {
		rows[i] = models.SearchRecordRow{RowIndex: i, SearchRecord: r}
	}
	return rows
}

func matchingRows(records []models.MatchingRecord) []models.MatchingRecordRow {
	rows := make([]models.MatchingRecordRow, len(records))
	for i, r := range records {
		rows[i] = models.MatchingRecordRow{
			RowIndex:     i,
			Title1:       r.First.Title,
			Description1: r.First.Description,
			PhotoURL1:    r.First.PhotoURL,
			URL1:         r.First.URL,
			Title2:       r.Second.Title,
			Description2: r.Second.Description,
			PhotoURL2:    r.Second.PhotoURL,
			URL2:         r.Second.URL,
		}
	}
	return rows
}

// importPostgres replaces the contents of each imported table in one
// transaction. Tables for datasets not given on the command line are untouched.
func importPostgres(ctx context.Context, db *gorm.DB, files *datasetFiles, batchSize int) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if files.searchRaw != nil {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.SearchRecordRow{}).Error; err != nil {
				return fmt.Errorf("clear search records: %w", err)
			}
			if rows := searchRows(files.search); len(rows) > 0 {
				if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
					return fmt.Errorf("insert search records: %w", err)
				}
			}
		}
		if files.matchingRaw != nil {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.MatchingRecordRow{}).Error; err != nil {
				return fmt.Errorf("clear matching records: %w", err)
			}
			if rows := matchingRows(files.matching); len(rows) > 0 {
				if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
					return fmt.Errorf("insert matching records: %w", err)
				}
			}
		}
		return nil
	})
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type uploader struct {
	client putObjectAPI
	bucket string
}

func (u *uploader) upload(ctx context.Context, files *datasetFiles, searchKey, matchingKey string) error {
	if files.searchRaw != nil {
		if err := u.put(ctx, searchKey, files.searchRaw); err != nil {
			return err
		}
	}
	if files.matchingRaw != nil {
		if err := u.put(ctx, matchingKey, files.matchingRaw); err != nil {
			return err
		}
	}
	return nil
}

func (u *uploader) put(ctx context.Context, key string, body []byte) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", u.bucket, key, err)
	}
	return nil
}
