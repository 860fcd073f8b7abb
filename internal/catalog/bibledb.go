package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// BibleDB holds scripture edition listings with parsed features.
type BibleDB struct {
	db *sql.DB
}

func OpenBibleDB(path string) (*BibleDB, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	b := &BibleDB{db: db}
	if err := b.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func (b *BibleDB) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *BibleDB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS listings (
  listing_id INTEGER PRIMARY KEY AUTOINCREMENT,
  isbn13 TEXT UNIQUE,
  isbn10 TEXT,
  title TEXT NOT NULL,
  subtitle TEXT,
  translation TEXT,
  translation_raw TEXT,
  language TEXT,
  publisher TEXT,
  publish_date TEXT,
  page_count INTEGER,
  format TEXT,
  dimensions TEXT,
  cover_color TEXT,
  source TEXT NOT NULL,
  source_key TEXT NOT NULL,
  source_url TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS features (
  listing_id INTEGER PRIMARY KEY,
  red_letter INTEGER,
  study_bible INTEGER,
  commentary_notes INTEGER,
  cross_references INTEGER,
  concordance INTEGER,
  maps INTEGER,
  ribbon_markers_count INTEGER,
  thumb_indexed INTEGER,
  gilded_edges INTEGER,
  journaling INTEGER,
  single_column INTEGER,
  two_column INTEGER,
  devotionals INTEGER,
  reading_plan INTEGER,
  print_size TEXT,
  font_size REAL,
  feature_evidence TEXT,
  FOREIGN KEY(listing_id) REFERENCES listings(listing_id)
);`,
		`CREATE TABLE IF NOT EXISTS translations (
  translation_code TEXT PRIMARY KEY,
  display_name TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS progress (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_title ON listings(title);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_translation ON listings(translation);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_publisher ON listings(publisher);`,
		`CREATE INDEX IF NOT EXISTS idx_listings_publish_date ON listings(publish_date);`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.Exec(stmt); err != nil {
			return fmt.Errorf("bible schema: %w", err)
		}
	}
	return nil
}

func (b *BibleDB) SetProgress(key, value string) error { return setProgress(b.db, key, value) }

func (b *BibleDB) GetProgress(key string) (string, bool) { return getProgress(b.db, key) }

func (b *BibleDB) EnsureTranslations(translations map[string]string) error {
	codes := make([]string, 0, len(translations))
	for code := range translations {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if _, err := b.db.Exec(
			`INSERT OR REPLACE INTO translations (translation_code, display_name) VALUES (?, ?);`,
			code, translations[code],
		); err != nil {
			return err
		}
	}
	return nil
}

func (b *BibleDB) getListingID(isbn13, isbn10 string) (int64, bool) {
	if isbn13 != "" {
		var id int64
		if err := b.db.QueryRow(`SELECT listing_id FROM listings WHERE isbn13 = ?;`, isbn13).Scan(&id); err == nil {
			return id, true
		}
	}
	if isbn10 != "" {
		var id int64
		if err := b.db.QueryRow(`SELECT listing_id FROM listings WHERE isbn10 = ?;`, isbn10).Scan(&id); err == nil {
			return id, true
		}
	}
	return 0, false
}

func (b *BibleDB) ListingExists(isbn13, isbn10 string) bool {
	_, ok := b.getListingID(isbn13, isbn10)
	return ok
}

// BibleListing carries one edition's metadata. Empty strings and zero
// page counts are treated as unknown on update.
type BibleListing struct {
	ISBN13         string
	ISBN10         string
	Title          string
	Subtitle       string
	Translation    string
	TranslationRaw string
	Language       string
	Publisher      string
	PublishDate    string
	PageCount      int
	Format         string
	Dimensions     string
	CoverColor     string
	Source         string
	SourceKey      string
	SourceURL      string
}

// UpsertListing inserts a new edition or fills gaps on an existing one.
// Updates never overwrite a known value with an empty one.
func (b *BibleDB) UpsertListing(l BibleListing) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	existingID, exists := b.getListingID(l.ISBN13, l.ISBN10)

	if !exists {
		res, err := b.db.Exec(`
INSERT INTO listings
  (isbn13, isbn10, title, subtitle, translation, translation_raw, language, publisher,
   publish_date, page_count, format, dimensions, cover_color, source, source_key, source_url,
   created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			nullable(l.ISBN13), nullable(l.ISBN10), l.Title, nullable(l.Subtitle),
			nullable(l.Translation), nullable(l.TranslationRaw), nullable(l.Language),
			nullable(l.Publisher), nullable(l.PublishDate), nullableInt(l.PageCount),
			nullable(l.Format), nullable(l.Dimensions), nullable(l.CoverColor),
			l.Source, l.SourceKey, nullable(l.SourceURL), now, now)
		if err != nil {
			return 0, fmt.Errorf("insert listing: %w", err)
		}
		id, _ := res.LastInsertId()
		return id, nil
	}

	sets := []string{"updated_at = ?"}
	params := []any{now}
	add := func(column, value string) {
		if value != "" {
			sets = append(sets, column+" = ?")
			params = append(params, value)
		}
	}
	add("isbn13", l.ISBN13)
	add("isbn10", l.ISBN10)
	add("title", l.Title)
	add("subtitle", l.Subtitle)
	add("translation", l.Translation)
	add("translation_raw", l.TranslationRaw)
	add("language", l.Language)
	add("publisher", l.Publisher)
	add("publish_date", l.PublishDate)
	add("format", l.Format)
	add("dimensions", l.Dimensions)
	add("cover_color", l.CoverColor)
	add("source", l.Source)
	add("source_key", l.SourceKey)
	add("source_url", l.SourceURL)
	if l.PageCount > 0 {
		sets = append(sets, "page_count = ?")
		params = append(params, l.PageCount)
	}
	params = append(params, existingID)

	_, err := b.db.Exec(
		`UPDATE listings SET `+strings.Join(sets, ", ")+` WHERE listing_id = ?;`,
		params...)
	if err != nil {
		return 0, fmt.Errorf("update listing: %w", err)
	}
	return existingID, nil
}

var featureColumns = []string{
	"red_letter", "study_bible", "commentary_notes", "cross_references",
	"concordance", "maps", "ribbon_markers_count", "thumb_indexed",
	"gilded_edges", "journaling", "single_column", "two_column",
	"devotionals", "reading_plan", "print_size", "font_size",
	"feature_evidence",
}

func (b *BibleDB) UpsertFeatures(listingID int64, features map[string]any) error {
	columns := append([]string{"listing_id"}, featureColumns...)
	placeholders := strings.TrimRight(strings.Repeat("?, ", len(columns)), ", ")
	values := make([]any, 0, len(columns))
	values = append(values, listingID)
	for _, col := range featureColumns {
		values = append(values, features[col])
	}
	var updates []string
	for _, col := range featureColumns {
		updates = append(updates, col+" = excluded."+col)
	}

	_, err := b.db.Exec(fmt.Sprintf(`
INSERT INTO features (%s) VALUES (%s)
ON CONFLICT(listing_id) DO UPDATE SET %s;`,
		strings.Join(columns, ", "), placeholders, strings.Join(updates, ", ")),
		values...)
	return err
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// ExportJSON writes every listing with its feature set, ordered by title.
func (b *BibleDB) ExportJSON(outputPath string) (int, error) {
	rows, err := b.db.Query(`
SELECT
  listings.isbn13, listings.title, listings.translation, listings.publisher,
  listings.format, listings.source_url,
  features.red_letter, features.study_bible, features.commentary_notes,
  features.cross_references, features.concordance, features.maps,
  features.ribbon_markers_count, features.thumb_indexed, features.gilded_edges,
  features.journaling, features.single_column, features.two_column,
  features.devotionals, features.reading_plan, features.print_size, features.font_size
FROM listings
LEFT JOIN features ON features.listing_id = listings.listing_id
ORDER BY listings.title ASC;`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	records := []map[string]any{}
	for rows.Next() {
		var isbn13, translation, publisher, format, sourceURL, printSize sql.NullString
		var title string
		var redLetter, studyBible, commentary, crossRefs, concordance, maps sql.NullInt64
		var ribbons, thumbIndexed, gilded, journaling, singleCol, twoCol sql.NullInt64
		var devotionals, readingPlan sql.NullInt64
		var fontSize sql.NullFloat64
		if err := rows.Scan(
			&isbn13, &title, &translation, &publisher, &format, &sourceURL,
			&redLetter, &studyBible, &commentary, &crossRefs, &concordance, &maps,
			&ribbons, &thumbIndexed, &gilded, &journaling, &singleCol, &twoCol,
			&devotionals, &readingPlan, &printSize, &fontSize,
		); err != nil {
			return 0, err
		}
		records = append(records, map[string]any{
			"isbn13":      nullStr(isbn13),
			"title":       title,
			"translation": nullStr(translation),
			"publisher":   nullStr(publisher),
			"format":      nullStr(format),
			"source_url":  nullStr(sourceURL),
			"features": map[string]any{
				"red_letter":           nullInt(redLetter),
				"study_bible":          nullInt(studyBible),
				"commentary_notes":     nullInt(commentary),
				"cross_references":     nullInt(crossRefs),
				"concordance":          nullInt(concordance),
				"maps":                 nullInt(maps),
				"ribbon_markers_count": nullInt(ribbons),
				"thumb_indexed":        nullInt(thumbIndexed),
				"gilded_edges":         nullInt(gilded),
				"journaling":           nullInt(journaling),
				"single_column":        nullInt(singleCol),
				"two_column":           nullInt(twoCol),
				"devotionals":          nullInt(devotionals),
				"reading_plan":         nullInt(readingPlan),
				"print_size":           nullStr(printSize),
				"font_size":            nullFloat(fontSize),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return 0, err
	}
	return len(records), nil
}

func nullStr(v sql.NullString) any {
	if v.Valid {
		return v.String
	}
	return nil
}

func nullInt(v sql.NullInt64) any {
	if v.Valid {
		return v.Int64
	}
	return nil
}

func nullFloat(v sql.NullFloat64) any {
	if v.Valid {
		return v.Float64
	}
	return nil
}
