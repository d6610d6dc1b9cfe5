package models

// SearchRecord is one search-relevance judgment row.
type SearchRecord struct {
	Query       string `json:"query" gorm:"column:query"`
	Title       string `json:"title" gorm:"column:title"`
	Description string `json:"description" gorm:"column:description"`
	PhotoURL    string `json:"url_photo" gorm:"column:url_photo"`
	URL         string `json:"url" gorm:"column:url"`
}

// Product is one side of a matching comparison.
type Product struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PhotoURL    string `json:"url_photo"`
	URL         string `json:"url"`
}

// MatchingRecord pairs two products for a single comparison decision.
type MatchingRecord struct {
	First  Product `json:"first"`
	Second Product `json:"second"`
}

// SearchRecordRow is the Postgres representation of a search record.
type SearchRecordRow struct {
	RowIndex int `gorm:"column:row_index;primaryKey;autoIncrement:false"`
	SearchRecord
}

func (SearchRecordRow) TableName() string { return "search_records" }

// MatchingRecordRow is the Postgres representation of a matching record.
type MatchingRecordRow struct {
	RowIndex     int    `gorm:"column:row_index;primaryKey;autoIncrement:false"`
	Title1       string `gorm:"column:title1"`
	Description1 string `gorm:"column:description1"`
	PhotoURL1    string `gorm:"column:url_photo1"`
	URL1         string `gorm:"column:url1"`
	Title2       string `gorm:"column:title2"`
	Description2 string `gorm:"column:description2"`
	PhotoURL2    string `gorm:"column:url_photo2"`
	URL2         string `gorm:"column:url2"`
}

func (MatchingRecordRow) TableName() string { return "matching_records" }

// Record converts the row into its domain form.
func (r MatchingRecordRow) Record() MatchingRecord {
	return MatchingRecord{
		First:  Product{Title: r.Title1, Description: r.Description1, PhotoURL: r.PhotoURL1, URL: r.URL1},
		Second: Product{Title: r.Title2, Description: r.Description2, PhotoURL: r.PhotoURL2, URL: r.URL2},
	}
}
