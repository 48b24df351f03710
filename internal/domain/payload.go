package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// nodeList decodes an e-Stat group that is a bare object when it has one
// element and an array when it has several. Downstream code only ever sees a
// slice.
type nodeList[T any] []T

func (l *nodeList[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*l = nodeList[T]{item}
	return nil
}

// Text decodes an e-Stat text node, which is either a bare scalar
// ("TITLE": "人口推計") or an attributed object ("TITLE": {"@no":"1","$":"人口推計"}).
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{':
		var node map[string]json.RawMessage
		if err := json.Unmarshal(data, &node); err != nil {
			return err
		}
		*t = Text(decodeScalar(node["$"]))
	default:
		// Bare number, e.g. "SURVEY_DATE": 202001.
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// decodeScalar renders a raw JSON scalar as its string form. Quoted strings are
// unquoted; numbers keep their literal text.
func decodeScalar(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ""
		}
		return s
	}
	return string(data)
}

// Result is the status block every e-Stat response carries. STATUS 0 means
// success; non-zero codes are API-level failures (100-102 are appId problems).
type Result struct {
	Status   int    `json:"STATUS"`
	ErrorMsg string `json:"ERROR_MSG"`
	Date     string `json:"DATE"`
}

// TableDescriptor identifies one source statistical table from getStatsList.
type TableDescriptor struct {
	ID          string `json:"@id"`
	StatName    Text   `json:"STAT_NAME"`
	GovOrg      Text   `json:"GOV_ORG"`
	Title       Text   `json:"TITLE"`
	Cycle       string `json:"CYCLE"`
	SurveyDate  Text   `json:"SURVEY_DATE"`
	OpenDate    string `json:"OPEN_DATE"`
	UpdatedDate Text   `json:"UPDATED_DATE"`
}

// StatsListEnvelope mirrors the getStatsList response body.
type StatsListEnvelope struct {
	GetStatsList struct {
		Result      Result `json:"RESULT"`
		DatalistInf struct {
			ResultInf struct {
				TotalNumber int `json:"TOTAL_NUMBER"`
			} `json:"RESULT_INF"`
			TableInfs nodeList[TableDescriptor] `json:"TABLE_INF"`
		} `json:"DATALIST_INF"`
	} `json:"GET_STATS_LIST"`
}

// ClassEntry is one code → label pair inside a classification dictionary.
type ClassEntry struct {
	Code  string `json:"@code"`
	Name  string `json:"@name"`
	Level string `json:"@level"`
	Unit  string `json:"@unit"`
}

// ClassObj is one classification dictionary ("area", "cat01", ...).
type ClassObj struct {
	ID      string               `json:"@id"`
	Name    string               `json:"@name"`
	Classes nodeList[ClassEntry] `json:"CLASS"`
}

// MetaInfoEnvelope mirrors the getMetaInfo response body.
type MetaInfoEnvelope struct {
	GetMetaInfo struct {
		Result      Result `json:"RESULT"`
		MetadataInf struct {
			ClassInf struct {
				ClassObjs nodeList[ClassObj] `json:"CLASS_OBJ"`
			} `json:"CLASS_INF"`
		} `json:"METADATA_INF"`
	} `json:"GET_META_INFO"`
}

// TableInf is the table-info section of a getStatsData payload.
type TableInf struct {
	ID          string `json:"@id"`
	StatName    Text   `json:"STAT_NAME"`
	Title       Text   `json:"TITLE"`
	SurveyDate  Text   `json:"SURVEY_DATE"`
	UpdatedDate Text   `json:"UPDATED_DATE"`
}

// ValueRow is one coded observation from DATA_INF. "$" is the numeric string,
// "@unit" the unit, and every other "@"-prefixed key is collected into Attrs
// with the marker stripped, so unlisted classification ids pass through.
type ValueRow struct {
	Value string
	Unit  string
	Attrs map[string]string
}

func (r *ValueRow) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	row := ValueRow{Attrs: make(map[string]string, len(raw))}
	for key, val := range raw {
		s := decodeScalar(val)
		switch {
		case key == "$":
			row.Value = s
		case key == "@unit":
			row.Unit = s
		case strings.HasPrefix(key, "@"):
			row.Attrs[strings.TrimPrefix(key, "@")] = s
		}
	}
	*r = row
	return nil
}

// StatsDataEnvelope mirrors the getStatsData response body.
type StatsDataEnvelope struct {
	GetStatsData struct {
		Result          Result `json:"RESULT"`
		StatisticalData struct {
			TableInf TableInf `json:"TABLE_INF"`
			ClassInf struct {
				ClassObjs nodeList[ClassObj] `json:"CLASS_OBJ"`
			} `json:"CLASS_INF"`
			DataInf struct {
				Values nodeList[ValueRow] `json:"VALUE"`
			} `json:"DATA_INF"`
		} `json:"STATISTICAL_DATA"`
	} `json:"GET_STATS_DATA"`
}
