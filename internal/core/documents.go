package core

// documents.go converts between BSON documents and tables.
//
// Extraction flattens each top-level field into a column. Nested documents
// and arrays are kept as relaxed Extended JSON text so no information is
// lost in the staging file.

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TableFromDocuments builds a table from documents. Columns appear in the
// order fields are first seen; fields absent from a document are null.
func TableFromDocuments(docs []bson.D) *Table {
	var columns []string
	index := make(map[string]int)
	for _, doc := range docs {
		for _, e := range doc {
			if _, ok := index[e.Key]; !ok {
				index[e.Key] = len(columns)
				columns = append(columns, e.Key)
			}
		}
	}

	t := NewTable(columns)
	t.Rows = make([][]Value, 0, len(docs))
	for _, doc := range docs {
		row := make([]Value, len(columns))
		for _, e := range doc {
			row[index[e.Key]] = valueFromBSON(e.Value)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// DocumentsFromTable converts each row to an ordered document. Nulls are
// stored as BSON null. Values in dateColumns are coerced to datetimes first,
// since a staging file carries dates as text.
func DocumentsFromTable(t *Table, dateColumns []string) []bson.D {
	isDate := make([]bool, len(t.Columns))
	for _, c := range dateColumns {
		if i := t.ColumnIndex(c); i >= 0 {
			isDate[i] = true
		}
	}

	docs := make([]bson.D, 0, len(t.Rows))
	for _, row := range t.Rows {
		doc := make(bson.D, len(t.Columns))
		for i, col := range t.Columns {
			v := row[i]
			if isDate[i] {
				v = CoerceDatetime(v)
			}
			doc[i] = bson.E{Key: col, Value: v.Interface()}
		}
		docs = append(docs, doc)
	}
	return docs
}

func valueFromBSON(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case string:
		return StringValue(x)
	case int32:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case int:
		return IntValue(int64(x))
	case float64:
		return FloatValue(x)
	case bool:
		return BoolValue(x)
	case bson.ObjectID:
		return StringValue(x.Hex())
	case bson.DateTime:
		return TimeValue(x.Time())
	case time.Time:
		return TimeValue(x)
	case bson.Decimal128:
		if n := ParseNumber(x.String()); !n.IsNull() {
			return n
		}
		return StringValue(x.String())
	case bson.Null, bson.Undefined:
		return Null()
	default:
		return StringValue(nestedJSON(v))
	}
}

// nestedJSON renders a nested value as relaxed Extended JSON.
func nestedJSON(v any) string {
	b, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return fmt.Sprint(v)
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return fmt.Sprint(v)
	}
	return string(wrapper["v"])
}
