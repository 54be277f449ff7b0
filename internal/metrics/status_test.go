package metrics

import (
	"reflect"
	"testing"
)

func TestFlattenStatusBuckets(t *testing.T) {
	tests := []struct {
		name    string
		buckets map[string]map[string]int
		want    []StatusBucket
	}{
		{name: "nil buckets", buckets: nil, want: nil},
		{name: "empty buckets", buckets: map[string]map[string]int{}, want: nil},
		{
			name: "sorted by count desc",
			buckets: map[string]map[string]int{
				"http": {"503": 10, "500": 5, "404": 20},
			},
			want: []StatusBucket{
				{Protocol: "http", Code: "404", Count: 20},
				{Protocol: "http", Code: "503", Count: 10},
				{Protocol: "http", Code: "500", Count: 5},
			},
		},
		{
			name: "ties broken by code",
			buckets: map[string]map[string]int{
				"http": {"503": 3, "500": 3},
			},
			want: []StatusBucket{
				{Protocol: "http", Code: "500", Count: 3},
				{Protocol: "http", Code: "503", Count: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenStatusBuckets(tt.buckets)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenStatusBuckets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		0:   "none",
		101: "1xx",
		200: "2xx",
		302: "3xx",
		404: "4xx",
		503: "5xx",
	}
	for status, want := range tests {
		if got := StatusClass(status); got != want {
			t.Errorf("StatusClass(%d) = %q, want %q", status, got, want)
		}
	}
}
