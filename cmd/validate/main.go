// Command validate performs integrity checks on the JSONL output of a
// pipeline run. It verifies stream shape (one JSON object per line, exactly
// one terminal summary), per-record field integrity, summary accounting, and
// data-type classification consistency.
//
// Usage:
//
//	SINK=jsonl JSONL_PATH=out.jsonl go run ./cmd/etl
//	go run ./cmd/validate -jsonl out.jsonl
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/estat-data-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// item is one parsed output line, classified by its type tag. Records carry
// no tag, so an absent "type" field means a statistical record.
type item struct {
	lineNum int
	kind    string
	record  *domain.StatRecord
	summary *domain.RunSummary
	raw     map[string]json.RawMessage
}

func main() {
	jsonlPath := flag.String("jsonl", "", "path to a pipeline run's JSONL output")
	flag.Parse()

	if *jsonlPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*jsonlPath); code != 0 {
		os.Exit(code)
	}
}

func run(jsonlPath string) int {
	fmt.Println("=== e-Stat Output Integrity Validation ===")
	fmt.Println()

	items, err := loadItems(jsonlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load output: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateStreamShape(items),
		validateRecords(items),
		validateSummaryAccounting(items),
		validateDataTypes(items),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	counts := map[string]int{}
	for _, it := range items {
		counts[it.kind]++
	}
	fmt.Println()
	fmt.Printf("Items: %d total (%d record, %d raw, %d error, %d summary, %d demo_summary)\n",
		len(items), counts[domain.ItemTypeRecord], counts[domain.ItemTypeRaw],
		counts[domain.ItemTypeError], counts[domain.ItemTypeSummary], counts[domain.ItemTypeDemoSummary])

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadItems(path string) ([]item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []item
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(line, &fields); err != nil {
			return nil, fmt.Errorf("line %d: not a JSON object: %w", lineNum, err)
		}

		it := item{lineNum: lineNum, raw: fields}
		if rawType, ok := fields["type"]; ok {
			if err := json.Unmarshal(rawType, &it.kind); err != nil {
				return nil, fmt.Errorf("line %d: non-string type tag", lineNum)
			}
		} else {
			it.kind = domain.ItemTypeRecord
		}

		switch it.kind {
		case domain.ItemTypeRecord:
			it.record = &domain.StatRecord{}
			if err := json.Unmarshal(line, it.record); err != nil {
				return nil, fmt.Errorf("line %d: malformed record: %w", lineNum, err)
			}
		case domain.ItemTypeSummary, domain.ItemTypeDemoSummary:
			it.summary = &domain.RunSummary{}
			if err := json.Unmarshal(line, it.summary); err != nil {
				return nil, fmt.Errorf("line %d: malformed summary: %w", lineNum, err)
			}
		}

		items = append(items, it)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no items in %s", path)
	}
	return items, nil
}

// ── Phase 1: Stream Shape ──
// A run always terminates with exactly one summary (or demo_summary), and
// nothing follows it.

func validateStreamShape(items []item) *phase {
	p := &phase{name: "Phase 1: Stream Shape"}

	known := map[string]bool{
		domain.ItemTypeRecord:      true,
		domain.ItemTypeRaw:         true,
		domain.ItemTypeError:       true,
		domain.ItemTypeSummary:     true,
		domain.ItemTypeDemoSummary: true,
	}

	var summaries int
	for i, it := range items {
		if !known[it.kind] {
			p.errorf("line %d: unknown item type %q", it.lineNum, it.kind)
			continue
		}
		if it.kind == domain.ItemTypeSummary || it.kind == domain.ItemTypeDemoSummary {
			summaries++
			if i != len(items)-1 {
				p.errorf("line %d: %s item is not the last line of the stream", it.lineNum, it.kind)
			}
		}
	}

	if summaries == 0 {
		p.errorf("stream has no terminal summary item")
	} else if summaries > 1 {
		p.errorf("stream has %d summary items, expected exactly 1", summaries)
	}

	return p
}

// ── Phase 2: Record Integrity ──

func validateRecords(items []item) *phase {
	p := &phase{name: "Phase 2: Record Integrity"}

	validDataTypes := map[domain.DataType]bool{
		domain.DataTypePopulation:  true,
		domain.DataTypeEconomic:    true,
		domain.DataTypeLabor:       true,
		domain.DataTypeIndustry:    true,
		domain.DataTypeEducation:   true,
		domain.DataTypeHealth:      true,
		domain.DataTypeEnvironment: true,
		domain.DataTypeGeneral:     true,
		domain.DataTypeUnknown:     true,
	}

	for _, it := range items {
		if it.kind != domain.ItemTypeRecord {
			continue
		}
		rec := it.record

		if rec.StatName == "" {
			p.errorf("line %d: statName is empty", it.lineNum)
		}
		if rec.SurveyDate == "" {
			p.errorf("line %d: surveyDate is empty", it.lineNum)
		}
		if rec.Region == "" {
			p.errorf("line %d: region is empty", it.lineNum)
		}
		if rec.SourceTableID == "" {
			p.errorf("line %d: sourceTableId is empty", it.lineNum)
		}
		if !validDataTypes[rec.DataType] {
			p.errorf("line %d: unknown dataType %q", it.lineNum, rec.DataType)
		}
		if math.IsNaN(rec.Value) || math.IsInf(rec.Value, 0) {
			p.errorf("line %d: value is not finite", it.lineNum)
		}
		if _, err := time.Parse(time.RFC3339, rec.ExtractedAt); err != nil {
			p.errorf("line %d: extractedAt %q is not RFC3339", it.lineNum, rec.ExtractedAt)
		}

		// A synthetic error record must say what went wrong; a healthy
		// record must not carry an error description.
		isErrorRecord := rec.DataType == domain.DataTypeUnknown && rec.Metadata != nil && rec.Metadata.Error != ""
		if rec.DataType == domain.DataTypeUnknown && !isErrorRecord {
			p.errorf("line %d: dataType is unknown but metadata carries no error", it.lineNum)
		}
		if rec.DataType != domain.DataTypeUnknown && rec.Metadata != nil && rec.Metadata.Error != "" {
			p.errorf("line %d: healthy record carries error %q", it.lineNum, rec.Metadata.Error)
		}
	}

	return p
}

// ── Phase 3: Summary Accounting ──

func validateSummaryAccounting(items []item) *phase {
	p := &phase{name: "Phase 3: Summary Accounting"}

	// Raw items count toward the summary's emitted total alongside records.
	var summary *item
	emitted := 0
	for i := range items {
		switch items[i].kind {
		case domain.ItemTypeRecord, domain.ItemTypeRaw:
			emitted++
		case domain.ItemTypeSummary, domain.ItemTypeDemoSummary:
			summary = &items[i]
		}
	}
	if summary == nil {
		p.errorf("no summary to check")
		return p
	}

	s := summary.summary
	if s.RecordsEmitted != emitted {
		p.errorf("summary says %d items emitted, stream has %d", s.RecordsEmitted, emitted)
	}
	if s.TablesSucceeded > s.TablesAttempted {
		p.errorf("tablesSucceeded %d exceeds tablesAttempted %d", s.TablesSucceeded, s.TablesAttempted)
	}
	if s.Criteria.Limit > 0 && s.TablesAttempted > s.Criteria.Limit {
		p.errorf("tablesAttempted %d exceeds the run's limit %d", s.TablesAttempted, s.Criteria.Limit)
	}
	if summary.kind == domain.ItemTypeDemoSummary && (s.TablesAttempted != 0 || s.TablesSucceeded != 0) {
		p.errorf("demo_summary reports table counts (%d attempted, %d succeeded)", s.TablesAttempted, s.TablesSucceeded)
	}
	if _, err := time.Parse(time.RFC3339, s.CompletedAt); err != nil {
		p.errorf("completedAt %q is not RFC3339", s.CompletedAt)
	}

	return p
}

// ── Phase 4: Data-Type Classification ──
// Re-runs the keyword classification on each record's title and compares it
// with the emitted dataType. Only possible when metadata was included.

func validateDataTypes(items []item) *phase {
	p := &phase{name: "Phase 4: Data-Type Classification"}

	checked := 0
	for _, it := range items {
		if it.kind != domain.ItemTypeRecord {
			continue
		}
		rec := it.record
		if rec.Metadata == nil || rec.Metadata.Title == "" || rec.Metadata.Error != "" {
			continue
		}
		checked++
		if want := domain.ClassifyDataType(rec.Metadata.Title); rec.DataType != want {
			p.errorf("line %d: title %q classifies as %q, record says %q",
				it.lineNum, rec.Metadata.Title, want, rec.DataType)
		}
	}

	if checked == 0 {
		fmt.Println("  Note: no records carried metadata; data-type check skipped")
	}

	return p
}
