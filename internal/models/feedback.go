package models

// Feedback is a short note owned by exactly one user
type Feedback struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Username string `json:"username"`
}
