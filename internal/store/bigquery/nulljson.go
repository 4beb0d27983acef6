package bigquery

import (
	"encoding/json"

	"cloud.google.com/go/bigquery"
)

// nullJSONFromValue marshals v into a valid bigquery.NullJSON.
func nullJSONFromValue(v any) (bigquery.NullJSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return bigquery.NullJSON{}, err
	}
	return bigquery.NullJSON{JSONVal: string(b), Valid: true}, nil
}

// nullJSONToValue unmarshals the JSON payload of n into dst.
func nullJSONToValue(n bigquery.NullJSON, dst any) error {
	return json.Unmarshal([]byte(n.JSONVal), dst)
}
