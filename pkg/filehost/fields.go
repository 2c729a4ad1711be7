package filehost

import (
	"reflect"
	"strings"
)

// LookupField resolves a dotted path such as "metadata.Division" in a decoded
// document.
func LookupField(doc map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// MatchFilter reports whether every filter path equals its value in doc.
func MatchFilter(doc map[string]interface{}, filter Filter) bool {
	for path, want := range filter {
		got, ok := LookupField(doc, path)
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Project keeps _id plus the listed top-level fields, the way a document
// database applies an inclusion projection. An empty field list keeps the
// whole document.
func Project(doc map[string]interface{}, fields []string) map[string]interface{} {
	if len(fields) == 0 {
		return doc
	}
	out := make(map[string]interface{}, len(fields)+1)
	if id, ok := doc["_id"]; ok {
		out["_id"] = id
	}
	for _, f := range fields {
		if v, ok := LookupField(doc, f); ok {
			out[f] = v
		}
	}
	return out
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case LoginRecord:
		return m, true
	default:
		return nil, false
	}
}
