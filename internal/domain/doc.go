// Package domain models Japanese government statistics served by the e-Stat API.
//
// # Data Source
//
// Tables are discovered through getStatsList, described through getMetaInfo, and
// fetched through getStatsData (JSON variants of the e-Stat 3.0 REST API). The
// responses are converted XML: field names are UPPER_SNAKE, attributes are keyed
// with an "@" prefix, and element text lives under "$".
//
// # Wire Conventions
//
// Singleton-or-list:
//
//	A group with one element is serialized as a bare object, a group with many
//	as an array. CLASS_OBJ, CLASS, TABLE_INF and VALUE all do this. The decoder
//	normalizes to a list at the boundary ([nodeList]); nothing downstream
//	re-checks arity.
//
// Text nodes:
//
//	A titled field is either a plain string ("TITLE": "人口推計") or an object
//	with attributes ("TITLE": {"@no": "1", "$": "人口推計"}). [Text] accepts both.
//
// Value rows:
//
//	One observation per row. "$" holds the numeric string, "@unit" the unit,
//	and every remaining "@"-prefixed key is a reference into a classification
//	dictionary, e.g. {"@area": "00000", "@cat01": "000", "@unit": "人",
//	"$": "125836021"}. The set of classification ids is open-ended; rows are
//	decoded into an attribute map so new ids flow through unchanged.
//
// Classification dictionaries:
//
//	getMetaInfo ships CLASS_OBJ groups mapping codes to labels
//	("00000" → "全国"). Lookups that miss fall back to the raw code; a missing
//	or malformed dictionary degrades resolution, it never fails it.
//
// Placeholders:
//
//	不明 for an absent title or survey date, 全国 for an unresolvable region,
//	総数 for an unresolvable primary category.
//
// # Data Types
//
// A coarse data type is inferred from the statistic title by ordered keyword
// sets (population, economic, labor, industry, education, health, environment,
// with general as the default). Evaluation order is fixed; a title matching
// several sets takes the first. See [ClassifyDataType].
package domain
