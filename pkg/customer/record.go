// Package customer turns loosely-shaped customer records into fixed-schema
// rows and partitions them by normalized phone number.
package customer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Columns is the output schema, in order.
var Columns = []string{
	"customer_name",
	"email",
	"kana",
	"memo",
	"ng",
	"no",
	"registdatetime",
	"salon_name",
	"staffng",
	"stamp",
	"status",
	"tel",
	"type",
}

// telColumn is the index of "tel" in Columns.
var telColumn = indexOf(Columns, "tel")

// Record is one decoded customer object from the listing endpoint.
type Record map[string]any

// Row is a record rendered over Columns together with its dedup key.
type Row struct {
	Values []string

	// Key is the digits-only tel value; empty means the row is never grouped.
	Key string
}

// Header returns a copy of Columns.
func Header() []string {
	return append([]string(nil), Columns...)
}

// BlankRow returns a row of empty fields with the schema's width.
func BlankRow() []string {
	return make([]string, len(Columns))
}

// NewRow renders rec over Columns and derives its dedup key.
func NewRow(rec Record) Row {
	values := make([]string, len(Columns))
	for i, col := range Columns {
		values[i] = Render(Lookup(rec, col))
	}
	return Row{Values: values, Key: NormalizeTel(values[telColumn])}
}

// KeyVariants returns the spellings tried for a field: exact, upper-cased,
// then first letter capitalized.
func KeyVariants(name string) []string {
	return []string{name, strings.ToUpper(name), capitalize(name)}
}

// Lookup returns the first present, non-null value among name's variants.
func Lookup(rec Record, name string) any {
	for _, key := range KeyVariants(name) {
		if v, ok := rec[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Render converts a decoded JSON value to its CSV cell text.
// Objects and arrays become compact JSON with non-ASCII left unescaped.
// Object keys come out sorted and an empty object renders as {}.
func Render(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "1"
		}
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]any, []any:
		return marshalUnescaped(val)
	default:
		return fmt.Sprint(val)
	}
}

// NormalizeTel strips every non-digit character.
func NormalizeTel(tel string) string {
	var b strings.Builder
	for _, r := range tel {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func marshalUnescaped(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
