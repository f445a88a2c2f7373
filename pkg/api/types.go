package api

// APIResponse represents a standard API response. Reason carries the wire
// outcome taxonomy (truncated or malformed) when a request failed on a bad
// message buffer.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// MessageRequest carries a base64-encoded message buffer to validate or
// decode.
type MessageRequest struct {
	Data string `json:"data"`
}

// ValidateResponse reports a structural validation outcome.
type ValidateResponse struct {
	OK            bool   `json:"ok"`
	Reason        string `json:"reason,omitempty"`
	Detail        string `json:"detail,omitempty"`
	BytesConsumed int    `json:"bytes_consumed,omitempty"`
}

// DecodeResponse carries a decoded message.
type DecodeResponse struct {
	MessageID uint32                 `json:"message_id"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
}

// SchemaInfo describes one registered schema.
type SchemaInfo struct {
	ID     uint32      `json:"id"`
	Name   string      `json:"name"`
	Fields []FieldInfo `json:"fields"`
}

// FieldInfo describes one schema field.
type FieldInfo struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Nullable bool   `json:"nullable"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string
}
