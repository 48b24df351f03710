package domain

import (
	"encoding/json"
	"time"
)

// Emitted item type tags. Every item on the output stream carries one, except
// StatRecord which is the untagged default.
const (
	ItemTypeRecord      = "record"
	ItemTypeRaw         = "raw"
	ItemTypeError       = "error"
	ItemTypeSummary     = "summary"
	ItemTypeDemoSummary = "demo_summary"
)

// StatRecord is the flat, label-resolved form of one coded observation.
// Immutable once constructed; ownership passes to the emitter.
type StatRecord struct {
	StatName      string          `json:"statName"`
	SurveyDate    string          `json:"surveyDate"`
	Region        string          `json:"region"`
	Category1     string          `json:"category1"`
	Category2     string          `json:"category2"`
	Value         float64         `json:"value"`
	Unit          string          `json:"unit"`
	SourceTableID string          `json:"sourceTableId"`
	DataType      DataType        `json:"dataType"`
	LastUpdated   string          `json:"lastUpdated"`
	Metadata      *RecordMetadata `json:"metadata,omitempty"`
	ExtractedAt   string          `json:"extractedAt"`
}

// RecordMetadata carries the resolved category map and the original coded
// attributes for traceability. On a synthetic error record it instead carries
// the failure description and the raw payload.
type RecordMetadata struct {
	Title      string            `json:"title,omitempty"`
	Categories map[string]string `json:"categories,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Error      string            `json:"error,omitempty"`
	RawPayload json.RawMessage   `json:"rawPayload,omitempty"`
}

// RawItem wraps an unmodified getStatsData payload for raw-format output.
type RawItem struct {
	Type        string          `json:"type"`
	TableID     string          `json:"tableId"`
	TableInfo   TableDescriptor `json:"tableInfo"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	RawData     json.RawMessage `json:"rawData"`
	ExtractedAt string          `json:"extractedAt"`
}

// NewRawItem stamps a raw payload with its table descriptor and extraction time.
func NewRawItem(table TableDescriptor, metadata, rawData json.RawMessage) RawItem {
	return RawItem{
		Type:        ItemTypeRaw,
		TableID:     table.ID,
		TableInfo:   table,
		Metadata:    metadata,
		RawData:     rawData,
		ExtractedAt: Now(),
	}
}

// ErrorItem reports a table whose processing failed. The run continues with
// the next table after emitting one.
type ErrorItem struct {
	Type        string `json:"type"`
	TableID     string `json:"tableId"`
	TableTitle  string `json:"tableTitle"`
	Error       string `json:"error"`
	ExtractedAt string `json:"extractedAt"`
}

// NewErrorItem builds an error item for a failed table.
func NewErrorItem(tableID, tableTitle string, err error) ErrorItem {
	return ErrorItem{
		Type:        ItemTypeError,
		TableID:     tableID,
		TableTitle:  tableTitle,
		Error:       err.Error(),
		ExtractedAt: Now(),
	}
}

// SearchCriteria is the validated search parameter set a run was started with.
type SearchCriteria struct {
	Keyword     string `json:"keyword"`
	SurveyYears string `json:"surveyYears,omitempty"`
	StatsField  string `json:"statsField,omitempty"`
	Limit       int    `json:"limit"`
}

// RunSummary is the terminal item of a run: accumulated counters plus the
// original search criteria. Type is "summary", or "demo_summary" when the run
// fell back to the sample dataset.
type RunSummary struct {
	Type            string         `json:"type"`
	TablesAttempted int            `json:"tablesAttempted"`
	TablesSucceeded int            `json:"tablesSucceeded"`
	RecordsEmitted  int            `json:"recordsEmitted"`
	Criteria        SearchCriteria `json:"criteria"`
	CompletedAt     string         `json:"completedAt"`
}

// Now returns the package clock's current time as an ISO-8601 UTC string, the
// timestamp format used on every emitted item.
func Now() string {
	return clock.Now().UTC().Format(time.RFC3339)
}
