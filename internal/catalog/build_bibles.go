package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

var languageNames = map[string]string{
	"eng": "English",
	"spa": "Spanish",
	"fre": "French",
	"ger": "German",
	"heb": "Hebrew",
	"grc": "Greek",
	"lat": "Latin",
}

var baseQueries = []string{
	"study bible",
	"journaling bible",
	"red letter bible",
	"large print bible",
	"giant print bible",
	"wide margin bible",
	"thinline bible",
	"reference bible",
}

// excludePhrases filters study aids and companion volumes that mention
// scripture but are not editions of it.
var excludePhrases = []string{
	"study guide", "study guides", "bible study", "workbook",
	"teacher guide", "leader guide", "curriculum", "lesson", "survey",
	"handbook", "dictionary", "atlas", "encyclopedia", "companion",
	"introduction", "overview", "guidebook", "commentary", "commentaries",
	"storybook", "story book", "coloring book", "activity book",
}

var firstNumberRE = regexp.MustCompile(`\d+`)

func parsePageCount(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if m := firstNumberRE.FindString(v); m != "" {
			n, _ := strconv.Atoi(m)
			return n
		}
	}
	return 0
}

func extractPublishYear(value any) int {
	switch v := value.(type) {
	case float64:
		year := int(v)
		if year > 0 && year < 10000 {
			return year
		}
	case string:
		best := 0
		for _, m := range yearDigitRE.FindAllStringSubmatch(v, -1) {
			if year, err := strconv.Atoi(m[1]); err == nil && year > best {
				best = year
			}
		}
		return best
	}
	return 0
}

func extractLanguage(languages any) string {
	list, ok := languages.([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	for _, lang := range list {
		switch l := lang.(type) {
		case map[string]any:
			if key, ok := l["key"].(string); ok && key != "" {
				parts := strings.Split(key, "/")
				code := parts[len(parts)-1]
				if name, ok := languageNames[code]; ok {
					return name
				}
				return code
			}
		case string:
			if name, ok := languageNames[l]; ok {
				return name
			}
			return l
		}
	}
	return ""
}

func extractPublisher(publishers any) string {
	list, ok := publishers.([]any)
	if !ok {
		return ""
	}
	for _, pub := range list {
		switch p := pub.(type) {
		case map[string]any:
			if name, ok := p["name"].(string); ok && name != "" {
				return name
			}
		case string:
			if p != "" {
				return p
			}
		}
	}
	return ""
}

func extractSubjects(subjects any) []string {
	list, ok := subjects.([]any)
	if !ok {
		return nil
	}
	var items []string
	for _, subject := range list {
		switch s := subject.(type) {
		case map[string]any:
			name := s["name"]
			if name == nil {
				name = s["title"]
			}
			if name == nil {
				name = s["key"]
			}
			if name != nil {
				items = append(items, fmt.Sprint(name))
			}
		case string:
			items = append(items, s)
		}
	}
	return items
}

func extractNotes(notes any) string {
	switch n := notes.(type) {
	case map[string]any:
		if value := n["value"]; value != nil {
			return fmt.Sprint(value)
		}
	case []any:
		var parts []string
		for _, note := range n {
			if note != nil {
				parts = append(parts, fmt.Sprint(note))
			}
		}
		return strings.Join(parts, " ")
	case string:
		return n
	}
	return ""
}

func isProbableScripture(title, subtitle, notes string) bool {
	var parts []string
	for _, text := range []string{title, subtitle, notes} {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	combined := strings.ToLower(strings.Join(parts, " "))
	if combined == "" {
		return false
	}
	hasBible := strings.Contains(combined, "bible")
	hasTestament := strings.Contains(combined, "old testament") || strings.Contains(combined, "new testament")
	if !hasBible && !hasTestament {
		return false
	}
	for _, phrase := range excludePhrases {
		if strings.Contains(combined, phrase) {
			return false
		}
	}
	return true
}

type editionEntry struct {
	Title          string
	Subtitle       string
	PublishDate    string
	Publisher      string
	PageCount      int
	PhysicalFormat string
	Dimensions     string
	Subjects       []string
	Notes          string
	Language       string
	SourceKey      string
	SourceURL      string
	ISBN10         string
	ISBN13         string
}

func firstISBN(list any) string {
	items, ok := list.([]any)
	if !ok || len(items) == 0 {
		return ""
	}
	return NormalizeISBN(fmt.Sprint(items[0]))
}

func normalizeEdition(edition *Edition, isbnHint string) editionEntry {
	data := edition.Data
	var e editionEntry

	if edition.Source == "books" {
		if identifiers, ok := data["identifiers"].(map[string]any); ok {
			e.ISBN10 = firstISBN(identifiers["isbn_10"])
			e.ISBN13 = firstISBN(identifiers["isbn_13"])
		}
	} else {
		e.ISBN10 = firstISBN(data["isbn_10"])
		e.ISBN13 = firstISBN(data["isbn_13"])
	}

	e.Title, _ = data["title"].(string)
	e.Subtitle, _ = data["subtitle"].(string)
	e.PublishDate, _ = data["publish_date"].(string)
	e.Publisher = extractPublisher(data["publishers"])
	pages := data["number_of_pages"]
	if pages == nil {
		pages = data["pagination"]
	}
	e.PageCount = parsePageCount(pages)
	e.PhysicalFormat, _ = data["physical_format"].(string)
	e.Dimensions, _ = data["physical_dimensions"].(string)
	e.Subjects = extractSubjects(data["subjects"])
	e.Notes = extractNotes(data["notes"])
	e.Language = extractLanguage(data["languages"])

	key, _ := data["key"].(string)
	e.SourceKey = key
	if e.SourceKey == "" {
		e.SourceKey = isbnHint
	}
	e.SourceURL, _ = data["url"].(string)
	if e.SourceURL == "" && key != "" {
		e.SourceURL = "https://openlibrary.org" + key
	}
	if e.SourceURL == "" && isbnHint != "" {
		e.SourceURL = "https://openlibrary.org/isbn/" + isbnHint
	}
	return e
}

func buildQueries(seedCodes []string) []string {
	seen := make(map[string]struct{})
	var queries []string
	for _, q := range baseQueries {
		if _, ok := seen[q]; !ok {
			queries = append(queries, q)
			seen[q] = struct{}{}
		}
	}
	for _, code := range seedCodes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		q := code + " bible"
		if _, ok := seen[q]; !ok {
			queries = append(queries, q)
			seen[q] = struct{}{}
		}
	}
	return queries
}

type BibleBuildOptions struct {
	DBPath             string
	MaxResultsPerQuery int
	MaxQueries         int
	SeedTranslations   string
	EnableWikidata     bool
	ExportJSON         string
	RefreshExisting    bool
	RecentYears        int
	NoResume           bool
}

func (o *BibleBuildOptions) applyDefaults() {
	if o.DBPath == "" {
		o.DBPath = "bible_catalog.db"
	}
	if o.MaxResultsPerQuery <= 0 {
		o.MaxResultsPerQuery = 200
	}
	if o.MaxQueries <= 0 {
		o.MaxQueries = 50
	}
	if o.SeedTranslations == "" {
		o.SeedTranslations = "KJV,NKJV,ESV,NIV,NLT,NASB,CSB"
	}
	if o.RecentYears < 0 {
		o.RecentYears = 0
	}
}

// BuildBibles harvests scripture editions from Open Library into a local
// sqlite catalog, extracting translation, format, and feature metadata
// from edition text. Progress is checkpointed per query page so an
// interrupted run picks up where it left off.
func BuildBibles(ctx context.Context, log *zap.SugaredLogger, opts BibleBuildOptions) error {
	opts.applyDefaults()

	lock := flock.New(opts.DBPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire build lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another build is running for %s", opts.DBPath)
	}
	defer lock.Unlock()

	seedTranslations := make(map[string]string)
	var seedCodes []string
	for _, item := range strings.Split(opts.SeedTranslations, ",") {
		code := strings.ToUpper(strings.TrimSpace(item))
		if code == "" {
			continue
		}
		if _, ok := seedTranslations[code]; !ok {
			seedTranslations[code] = code
			seedCodes = append(seedCodes, code)
		}
	}

	db, err := OpenBibleDB(opts.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureTranslations(seedTranslations); err != nil {
		return err
	}

	client := NewOpenLibraryClient()
	var wikidata *WikidataClient
	if opts.EnableWikidata {
		wikidata = NewWikidataClient()
	}

	queries := buildQueries(seedCodes)
	maxQueries := opts.MaxQueries
	if maxQueries > len(queries) {
		maxQueries = len(queries)
	}
	const pageSize = 100
	pages := (opts.MaxResultsPerQuery + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}

	minPublishYear := 0
	if opts.RecentYears > 0 {
		minPublishYear = time.Now().UTC().Year() - (opts.RecentYears - 1)
	}

	resumeQueryIdx := -1
	resumePage := 0
	if !opts.NoResume {
		if resumeQuery, ok := db.GetProgress("bible_resume_query"); ok {
			for i, q := range queries[:maxQueries] {
				if q == resumeQuery {
					resumeQueryIdx = i
					break
				}
			}
			if raw, ok := db.GetProgress("bible_resume_page"); ok {
				resumePage, _ = strconv.Atoi(raw)
			}
			if resumeQueryIdx >= 0 {
				log.Infow("resuming build", "query", resumeQuery, "page", resumePage)
			}
		}
	}

	seenISBNs := make(map[string]struct{})

	for queryIdx, query := range queries[:maxQueries] {
		pageStart := 1
		if resumeQueryIdx >= 0 {
			if queryIdx < resumeQueryIdx {
				continue
			}
			if queryIdx == resumeQueryIdx && resumePage > 0 {
				pageStart = resumePage + 1
				if pageStart > pages {
					continue
				}
			}
		}

		totalStored := 0
		for page := pageStart; page <= pages; page++ {
			data, err := client.Search(ctx, query, page, pageSize)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warnw("query page failed", "query", query, "page", page, "error", err)
				continue
			}
			log.Infow("query page", "query", query, "page", page, "docs", len(data.Docs))

			stored, filtered, recentFiltered := 0, 0, 0
			for _, doc := range data.Docs {
				isbnList, _ := doc["isbn"].([]any)
				for _, rawISBN := range isbnList {
					normalized := NormalizeISBN(fmt.Sprint(rawISBN))
					if normalized == "" {
						continue
					}
					isbn10, isbn13 := "", normalized
					if len(normalized) == 10 {
						isbn10 = normalized
						isbn13 = ISBN10To13(isbn10)
					}
					if _, seen := seenISBNs[normalized]; seen {
						continue
					}
					if _, seen := seenISBNs[isbn13]; isbn13 != "" && seen {
						continue
					}
					seenISBNs[normalized] = struct{}{}
					if isbn13 != "" {
						seenISBNs[isbn13] = struct{}{}
					}
					if !opts.RefreshExisting && db.ListingExists(isbn13, isbn10) {
						continue
					}

					lookup := isbn13
					if lookup == "" {
						lookup = isbn10
					}
					edition, err := client.GetEditionByISBN(ctx, lookup)
					if err != nil {
						if ctx.Err() != nil {
							return ctx.Err()
						}
						log.Warnw("isbn fetch failed", "isbn", lookup, "error", err)
						continue
					}
					if edition == nil {
						continue
					}

					entry := normalizeEdition(edition, lookup)
					if entry.Title == "" {
						continue
					}
					if !isProbableScripture(entry.Title, entry.Subtitle, entry.Notes) {
						filtered++
						continue
					}
					if minPublishYear > 0 {
						year := extractPublishYear(entry.PublishDate)
						if year == 0 || year < minPublishYear {
							recentFiltered++
							continue
						}
					}

					texts := append([]string{
						entry.Title, entry.Subtitle, entry.PhysicalFormat, entry.Notes,
					}, entry.Subjects...)

					translationCode, translationRaw := ExtractTranslation(texts, seedCodes)
					features, evidence := ParseFeatures(texts)

					listing := BibleListing{
						ISBN13:         coalesce(entry.ISBN13, isbn13),
						ISBN10:         coalesce(entry.ISBN10, isbn10),
						Title:          entry.Title,
						Subtitle:       entry.Subtitle,
						Translation:    translationCode,
						TranslationRaw: translationRaw,
						Language:       entry.Language,
						Publisher:      entry.Publisher,
						PublishDate:    entry.PublishDate,
						PageCount:      entry.PageCount,
						Format:         ExtractFormat(entry.PhysicalFormat, texts),
						Dimensions:     entry.Dimensions,
						CoverColor:     ExtractCoverColor(texts),
						Source:         "openlibrary",
						SourceKey:      coalesce(entry.SourceKey, lookup),
						SourceURL:      entry.SourceURL,
					}

					if wikidata != nil {
						info, err := wikidata.LookupISBN(ctx, listing.ISBN13, listing.ISBN10)
						if err != nil {
							log.Debugw("wikidata lookup failed", "isbn", lookup, "error", err)
						} else {
							listing.Publisher = coalesce(listing.Publisher, info.Publisher)
							listing.PublishDate = coalesce(listing.PublishDate, info.PublishDate)
							listing.Language = coalesce(listing.Language, info.Language)
							listing.SourceURL = coalesce(listing.SourceURL, info.SourceURL)
						}
					}

					listingID, err := db.UpsertListing(listing)
					if err != nil {
						return err
					}
					features["feature_evidence"] = FeatureEvidenceJSON(evidence)
					if err := db.UpsertFeatures(listingID, features); err != nil {
						return err
					}
					stored++
					totalStored++
				}
			}

			if err := db.SetProgress("bible_resume_query", query); err != nil {
				return err
			}
			if err := db.SetProgress("bible_resume_page", strconv.Itoa(page)); err != nil {
				return err
			}
			log.Infow("page committed",
				"query", query, "page", page,
				"stored", stored, "filtered", filtered, "recent_filtered", recentFiltered)
		}
		log.Infow("query finished", "query", query, "stored", totalStored)
	}

	if opts.ExportJSON != "" {
		exported, err := db.ExportJSON(opts.ExportJSON)
		if err != nil {
			return fmt.Errorf("export catalog: %w", err)
		}
		log.Infow("catalog exported", "path", opts.ExportJSON, "records", exported)
	}
	return nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
