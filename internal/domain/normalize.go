package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Placeholder labels substituted when a field cannot be resolved.
const (
	PlaceholderTitle = "不明"
	PlaceholderDate  = "不明"
	RegionNationwide = "全国"
	CategoryTotal    = "総数"
)

// Display-field precedence over the classification ids attached to a value
// row. The first id present on the row wins; ids not listed here still resolve
// into the record's category map.
var (
	regionKeys    = []string{"area", "region"}
	category1Keys = []string{"cat01", "tab"}
	category2Keys = []string{"cat02", "cat03"}
)

// NormalizeRecords flattens a raw getStatsData payload into label-resolved
// records. A well-formed payload with N value rows yields exactly N records.
// Any failure while traversing the payload yields exactly one synthetic error
// record carrying the failure and the raw payload; the function never returns
// an error and never returns an empty slice.
func NormalizeRecords(raw json.RawMessage, idx ClassificationIndex, tableID string, includeMetadata bool) []StatRecord {
	records, err := normalizeAll(raw, idx, tableID, includeMetadata)
	if err != nil {
		return []StatRecord{errorRecord(raw, tableID, err)}
	}
	return records
}

func normalizeAll(raw json.RawMessage, idx ClassificationIndex, tableID string, includeMetadata bool) ([]StatRecord, error) {
	var env StatsDataEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode stats data payload: %w", err)
	}

	data := env.GetStatsData.StatisticalData

	title := firstNonEmpty(data.TableInf.Title.String(), data.TableInf.StatName.String(), PlaceholderTitle)
	surveyDate := firstNonEmpty(data.TableInf.SurveyDate.String(), PlaceholderDate)
	lastUpdated := firstNonEmpty(data.TableInf.UpdatedDate.String(), Now())
	dataType := ClassifyDataType(title)

	rows := data.DataInf.Values
	if len(rows) == 0 {
		return nil, errors.New("payload has no DATA_INF value rows")
	}

	records := make([]StatRecord, 0, len(rows))
	for _, row := range rows {
		categories := make(map[string]string, len(row.Attrs))
		for id, code := range row.Attrs {
			categories[id] = idx.Resolve(id, code)
		}

		rec := StatRecord{
			StatName:      title,
			SurveyDate:    surveyDate,
			Region:        pickCategory(categories, regionKeys, RegionNationwide),
			Category1:     pickCategory(categories, category1Keys, CategoryTotal),
			Category2:     pickCategory(categories, category2Keys, ""),
			Value:         parseValueOrZero(row.Value),
			Unit:          row.Unit,
			SourceTableID: tableID,
			DataType:      dataType,
			LastUpdated:   lastUpdated,
			ExtractedAt:   Now(),
		}
		if includeMetadata {
			rec.Metadata = &RecordMetadata{
				Title:      title,
				Categories: categories,
				Attributes: row.Attrs,
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// pickCategory returns the resolved label for the first present id in keys,
// or the fallback label when none is present.
func pickCategory(categories map[string]string, keys []string, fallback string) string {
	for _, key := range keys {
		if label, ok := categories[key]; ok && label != "" {
			return label
		}
	}
	return fallback
}

// parseValueOrZero parses a numeric observation string, returning 0 on
// failure. e-Stat uses sentinels like "-" and "***" for suppressed cells;
// those become 0 rather than an error. Thousands separators are tolerated.
func parseValueOrZero(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// errorRecord is the single synthetic record returned when a whole payload
// fails to normalize. Metadata carries the failure and the raw payload for
// diagnosis regardless of whether metadata inclusion was requested.
func errorRecord(raw json.RawMessage, tableID string, err error) StatRecord {
	now := Now()
	return StatRecord{
		StatName:      PlaceholderTitle,
		SurveyDate:    PlaceholderDate,
		Region:        RegionNationwide,
		Category1:     CategoryTotal,
		Value:         0,
		SourceTableID: tableID,
		DataType:      DataTypeUnknown,
		LastUpdated:   now,
		ExtractedAt:   now,
		Metadata: &RecordMetadata{
			Error:      err.Error(),
			RawPayload: raw,
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
