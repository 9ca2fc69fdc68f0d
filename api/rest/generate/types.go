package generate

import "codeberg.org/cvforge/server/cvforge/resumes"

// Request represents the request body for CV generation
type Request struct {
	CVData *resumes.Form `json:"cv_data" binding:"required"`
	Prompt string        `json:"prompt" binding:"max=2000"`
}

// Response represents a successful CV generation
type Response struct {
	Success   bool                `json:"success"`
	Result    resumes.Enhancement `json:"result"`
	Remaining int                 `json:"remaining"`
	Used      int                 `json:"used"`
	Total     int                 `json:"total"`
}
