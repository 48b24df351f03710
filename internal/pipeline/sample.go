package pipeline

import (
	"strings"

	"github.com/couchcryptid/estat-data-etl/internal/domain"
)

// sampleDataset is the small locally-held dataset emitted when a run cannot
// reach the API. Values are real published census/estimate figures so the
// demo output looks like production output.
func sampleDataset() []domain.StatRecord {
	now := domain.Now()
	return []domain.StatRecord{
		{
			StatName:      "国勢調査 人口等基本集計",
			SurveyDate:    "202010",
			Region:        "全国",
			Category1:     "総数",
			Value:         125836021,
			Unit:          "人",
			SourceTableID: "demo-0003448237",
			DataType:      domain.DataTypePopulation,
			LastUpdated:   now,
			ExtractedAt:   now,
		},
		{
			StatName:      "人口推計 都道府県別人口",
			SurveyDate:    "202110",
			Region:        "北海道",
			Category1:     "総数",
			Value:         5183000,
			Unit:          "人",
			SourceTableID: "demo-0003448238",
			DataType:      domain.DataTypePopulation,
			LastUpdated:   now,
			ExtractedAt:   now,
		},
	}
}

// SampleRecords filters the fixed sample dataset with the same keyword
// predicate a real search uses. An empty keyword matches everything.
func SampleRecords(keyword string) []domain.StatRecord {
	records := sampleDataset()
	if keyword == "" {
		return records
	}

	matched := records[:0]
	for _, rec := range records {
		if strings.Contains(rec.StatName, keyword) {
			matched = append(matched, rec)
		}
	}
	return matched
}
