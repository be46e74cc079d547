package model

import "time"

// APIKey is a context key issued to a user for one processed website.
// Keys are public: they are embedded in the integration snippet.
type APIKey struct {
	Key       string    `json:"key"`
	UserID    string    `json:"user_id"`
	SourceURL string    `json:"source_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Keys returns the key strings of keys in order.
func Keys(keys []*APIKey) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Key)
	}
	return out
}
