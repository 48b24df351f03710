package jsonl

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/couchcryptid/estat-data-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_EmitsOneLinePerItem(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Emit(context.Background(), "t1", domain.StatRecord{
		StatName: "人口推計",
		Region:   "全国",
		Value:    125836021,
	}))
	require.NoError(t, w.Emit(context.Background(), "summary", domain.RunSummary{
		Type:           domain.ItemTypeSummary,
		RecordsEmitted: 1,
	}))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var rec domain.StatRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "全国", rec.Region)

	var summary domain.RunSummary
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &summary))
	assert.Equal(t, domain.ItemTypeSummary, summary.Type)
}

func TestWriter_UnserializableItem(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})
	err := w.Emit(context.Background(), "k", func() {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize")
}

func TestOpen_File(t *testing.T) {
	path := t.TempDir() + "/out.jsonl"
	w, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, w.Emit(context.Background(), "k", domain.RunSummary{Type: domain.ItemTypeDemoSummary}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "demo_summary")
}
