package model

// DecodeError records a query record that was rejected during parsing.
type DecodeError struct {
	ChainID  uint64 `json:"chain_id"`
	RecordID string `json:"record_id,omitempty"`
	Field    string `json:"field,omitempty"`
	Error    string `json:"error"`
}
