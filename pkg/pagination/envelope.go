package pagination

// envelopeKeys are the wrapper fields that may hold the record list, in order.
var envelopeKeys = []string{"data", "customers"}

// ExtractRecords finds the record list in a decoded listing response: the
// body itself when it is a list, otherwise the first of "data" or "customers"
// that holds a list. Any other shape has no records.
func ExtractRecords(body any) []any {
	switch v := body.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range envelopeKeys {
			if list, ok := v[key].([]any); ok {
				return list
			}
		}
	}
	return nil
}
