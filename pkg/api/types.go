package api

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PutResult reports whether a put replaced an existing value.
type PutResult struct {
	Key      string `json:"key"`
	Replaced bool   `json:"replaced"`
}

// DeleteResult reports whether a delete removed an existing value.
type DeleteResult struct {
	Key     string `json:"key"`
	Existed bool   `json:"existed"`
}

// KeyList is the ordered key listing of a bucket.
type KeyList struct {
	Bucket string   `json:"bucket"`
	Keys   []string `json:"keys"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind   string
	Port   int
	APIKey string
}
