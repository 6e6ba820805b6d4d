package model

type ConvertRequestBody struct {
	Files []FileBody `json:"files"`
	// Strict overrides the server default when set.
	Strict *bool `json:"strict,omitempty"`
	Mono   bool  `json:"mono,omitempty"`
}

type FileBody struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

type ErrorResponse struct {
	Error  string `json:"detail"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}
