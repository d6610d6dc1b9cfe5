package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yashrajoria/markup-backend/services/markup-service/models"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Column sets expected in the CSV exports.
var (
	SearchColumns   = []string{"query", "title", "description", "url_photo", "url"}
	MatchingColumns = []string{"title1", "description1", "url_photo1", "url1", "title2", "description2", "url_photo2", "url2"}
)

// ErrMissingHeader is returned when a required column is absent from the header row.
var ErrMissingHeader = errors.New("missing required CSV header")

// ParseSearchCSV reads a search dataset. Rows keep their file order.
func ParseSearchCSV(r io.Reader) ([]models.SearchRecord, error) {
	records := []models.SearchRecord{}
	err := readTable(r, SearchColumns, func(get func(string) string) {
		records = append(records, models.SearchRecord{
			Query:       get("query"),
			Title:       get("title"),
			Description: get("description"),
			PhotoURL:    get("url_photo"),
			URL:         get("url"),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("search dataset: %w", err)
	}
	return records, nil
}

// ParseMatchingCSV reads a matching dataset. Rows keep their file order.
func ParseMatchingCSV(r io.Reader) ([]models.MatchingRecord, error) {
	records := []models.MatchingRecord{}
	err := readTable(r, MatchingColumns, func(get func(string) string) {
		records = append(records, models.MatchingRecord{
			First: models.Product{
				Title:       get("title1"),
				Description: get("description1"),
				PhotoURL:    get("url_photo1"),
				URL:         get("url1"),
			},
			Second: models.Product{
				Title:       get("title2"),
				Description: get("description2"),
				PhotoURL:    get("url_photo2"),
				URL:         get("url2"),
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("matching dataset: %w", err)
	}
	return records, nil
}

// readTable decodes the header row, checks the required columns and calls emit once per data row.
// A leading BOM (UTF-8 or UTF-16) is honored and every field is NFC-normalized.
func readTable(src io.Reader, required []string, emit func(get func(string) string)) error {
	decoded := transform.NewReader(src, unicode.BOMOverride(encoding.Nop.NewDecoder()))
	r := csv.NewReader(decoded)

	headers, err := r.Read()
	if err == io.EOF {
		return fmt.Errorf("CSV must include a header row")
	}
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range required {
		if _, ok := index[h]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingHeader, h)
		}
	}

	rowNum := 2
	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to parse CSV row %d: %w", rowNum, err)
		}

		get := func(key string) string {
			if idx, ok := index[key]; ok && idx < len(row) {
				return norm.NFC.String(strings.TrimSpace(row[idx]))
			}
			return ""
		}
		emit(get)
		rowNum++
	}
}
