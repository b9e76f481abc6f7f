package respond

type TodoItem struct {
	TodoId      string `json:"todo_id"`
	OwnerId     string `json:"owner_id"`
	GroupId     string `json:"group_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CompletedAt string `json:"completed_at,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
