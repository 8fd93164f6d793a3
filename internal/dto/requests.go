package dto

// UpdateReportStateRequest represents the request to change an AI report state
type UpdateReportStateRequest struct {
	State string `json:"state" binding:"required"`
}

// ModerateContentRequest represents the request to run moderation on a single item
type ModerateContentRequest struct {
	TargetType string `json:"target_type" binding:"required"`
	TargetID   int64  `json:"target_id" binding:"required"`
	AuthorID   int64  `json:"author_id"`
	Text       string `json:"text" binding:"required"`
}
