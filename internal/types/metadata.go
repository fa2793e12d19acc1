package types

// Metadata is a free-form string map carried on invoice requests and line
// items for downstream collaborators
type Metadata map[string]string
