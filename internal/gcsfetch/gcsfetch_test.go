package gcsfetch

import "testing"

func TestParseURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"valid", "gs://uploads/2024/statement.csv", "uploads", "2024/statement.csv", false},
		{"nested object", "gs://b/a/b/c.csv", "b", "a/b/c.csv", false},
		{"wrong scheme", "s3://bucket/key", "", "", true},
		{"no object", "gs://bucket", "", "", true},
		{"empty bucket", "gs:///object", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseURI(%q) = (%q, %q), want (%q, %q)", tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}
