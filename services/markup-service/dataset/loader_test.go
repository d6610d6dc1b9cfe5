package dataset_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/markup-backend/services/markup-service/dataset"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type fakeS3 struct {
	objects map[string]string
	lastKey string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = *params.Bucket + "/" + *params.Key
	body, ok := f.objects[f.lastKey]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestCSVLoader_FileSource(t *testing.T) {
	dir := t.TempDir()
	searchPath := filepath.Join(dir, "search.csv")
	matchingPath := filepath.Join(dir, "matching.csv")
	require.NoError(t, os.WriteFile(searchPath, []byte("query,title,description,url_photo,url\nq,t,d,p,u\n"), 0o600))
	require.NoError(t, os.WriteFile(matchingPath, []byte("title1,description1,url_photo1,url1,title2,description2,url_photo2,url2\nA,,,,B,,,\n"), 0o600))

	loader := dataset.NewCSVLoader(dataset.NewFileSource(searchPath, matchingPath))

	search, err := loader.LoadSearch(context.Background())
	require.NoError(t, err)
	assert.Len(t, search, 1)

	matching, err := loader.LoadMatching(context.Background())
	require.NoError(t, err)
	require.Len(t, matching, 1)
	assert.Equal(t, "B", matching[0].Second.Title)

	assert.Equal(t, "file://"+searchPath, loader.Describe(models.TaskSearch))
}

func TestCSVLoader_MissingFile(t *testing.T) {
	loader := dataset.NewCSVLoader(dataset.NewFileSource(filepath.Join(t.TempDir(), "nope.csv"), ""))

	_, err := loader.LoadSearch(context.Background())
	assert.Error(t, err)
	_, err = loader.LoadMatching(context.Background())
	assert.Error(t, err)
}

func TestCSVLoader_S3Source(t *testing.T) {
	client := &fakeS3{objects: map[string]string{
		"datasets/search.csv": "query,title,description,url_photo,url\nq1,t,d,p,u\nq2,t,d,p,u\n",
	}}
	loader := dataset.NewCSVLoader(dataset.NewS3Source(client, "datasets", "search.csv", "matching.csv"))

	records, err := loader.LoadSearch(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "datasets/search.csv", client.lastKey)

	_, err = loader.LoadMatching(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "s3://datasets/matching.csv", loader.Describe(models.TaskMatching))
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestPostgresLoader_LoadSearch(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	loader := dataset.NewPostgresLoader(gormDB)

	rows := sqlmock.NewRows([]string{"row_index", "query", "title", "description", "url_photo", "url"}).
		AddRow(0, "red shoes", "Runner", "Light", "p0", "u0").
		AddRow(1, "blue hat", "Cap", "Wool", "p1", "u1")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "search_records" ORDER BY row_index ASC`)).
		WillReturnRows(rows)

	records, err := loader.LoadSearch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "red shoes", records[0].Query)
	assert.Equal(t, "u1", records[1].URL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoader_LoadMatching(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	loader := dataset.NewPostgresLoader(gormDB)

	rows := sqlmock.NewRows([]string{"row_index", "title1", "description1", "url_photo1", "url1", "title2", "description2", "url_photo2", "url2"}).
		AddRow(0, "A", "da", "pa", "ua", "B", "db", "pb", "ub")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "matching_records" ORDER BY row_index ASC`)).
		WillReturnRows(rows)

	records, err := loader.LoadMatching(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A", records[0].First.Title)
	assert.Equal(t, "ub", records[0].Second.URL)
}

func TestPostgresLoader_QueryError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	loader := dataset.NewPostgresLoader(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "search_records"`)).
		WillReturnError(errors.New("relation does not exist"))

	_, err := loader.LoadSearch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load search records")
}
