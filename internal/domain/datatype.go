package domain

import "strings"

// DataType is a coarse semantic category inferred from a statistic title.
type DataType string

const (
	DataTypePopulation  DataType = "population"
	DataTypeEconomic    DataType = "economic"
	DataTypeLabor       DataType = "labor"
	DataTypeIndustry    DataType = "industry"
	DataTypeEducation   DataType = "education"
	DataTypeHealth      DataType = "health"
	DataTypeEnvironment DataType = "environment"
	DataTypeGeneral     DataType = "general"

	// DataTypeUnknown marks the synthetic record produced when a whole
	// payload fails to normalize. Real titles never classify to it.
	DataTypeUnknown DataType = "unknown"
)

// dataTypeKeywords is evaluated in order; the first set with a matching term
// wins, so a title naming both 人口 and 労働 classifies as population.
var dataTypeKeywords = []struct {
	dataType DataType
	terms    []string
}{
	{DataTypePopulation, []string{"人口", "population"}},
	{DataTypeEconomic, []string{"経済", "economic"}},
	{DataTypeLabor, []string{"労働", "labor"}},
	{DataTypeIndustry, []string{"産業", "industry"}},
	{DataTypeEducation, []string{"教育", "education"}},
	{DataTypeHealth, []string{"医療", "health"}},
	{DataTypeEnvironment, []string{"環境", "environment"}},
}

// ClassifyDataType maps a title to one of the fixed data types. Matching is a
// case-insensitive substring test; no match yields DataTypeGeneral.
func ClassifyDataType(title string) DataType {
	lowered := strings.ToLower(title)
	for _, set := range dataTypeKeywords {
		for _, term := range set.terms {
			if strings.Contains(lowered, term) {
				return set.dataType
			}
		}
	}
	return DataTypeGeneral
}
