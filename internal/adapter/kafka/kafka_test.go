package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/estat-data-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage_Record(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	rec := domain.StatRecord{
		StatName:      "国勢調査 人口等基本集計",
		Region:        "全国",
		Value:         125836021,
		Unit:          "人",
		SourceTableID: "0003448237",
		DataType:      domain.DataTypePopulation,
	}

	msg, err := serializeToMessage(rec.SourceTableID, rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("0003448237"), msg.Key)
	assert.Contains(t, string(msg.Value), `"region":"全国"`)
	assert.Contains(t, string(msg.Value), `"dataType":"population"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "item_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("record"), msg.Headers[0].Value)
	assert.Equal(t, "emitted_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-08-29T12:00:00Z"), msg.Headers[1].Value)
}

func TestSerializeToMessage_TaggedItems(t *testing.T) {
	tests := []struct {
		name     string
		item     any
		expected string
	}{
		{"error item", domain.NewErrorItem("t1", "人口推計", assertErr{}), "error"},
		{"summary", domain.RunSummary{Type: domain.ItemTypeSummary}, "summary"},
		{"demo summary", domain.RunSummary{Type: domain.ItemTypeDemoSummary}, "demo_summary"},
		{"raw item", domain.NewRawItem(domain.TableDescriptor{ID: "t1"}, nil, []byte(`{}`)), "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := serializeToMessage("k", tt.item)
			require.NoError(t, err)
			assert.Equal(t, []byte(tt.expected), msg.Headers[0].Value)
		})
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "fetch failed" }
