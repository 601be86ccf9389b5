package entity

import "encoding/json"

const (
	fieldImage = "image"
)

// LaunchCollection is the decoded upcoming-launches response.
// Pagination fields are kept but never examined.
type LaunchCollection struct {
	Count    int            `json:"count,omitempty"`
	Next     *string        `json:"next,omitempty"`
	Previous *string        `json:"previous,omitempty"`
	Results  []LaunchRecord `json:"results"`
}

// LaunchRecord is a single launch as returned by the API. Only the image field is read.
type LaunchRecord map[string]any

// Image returns the image value and whether the record has the field at all.
// A null or non-string value is returned in its json form, so null yields "null".
func (r LaunchRecord) Image() (string, bool) {
	v, exists := r[fieldImage]
	if !exists {
		return "", false
	}

	if s, ok := v.(string); ok {
		return s, true
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", true
	}

	return string(raw), true
}
