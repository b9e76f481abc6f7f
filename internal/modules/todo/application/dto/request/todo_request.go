package request

type CreateTodoRequest struct {
	GroupId     string `json:"group_id"`
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
}

type UpdateTodoRequest struct {
	TodoId      string  `json:"todo_id" binding:"required"`
	Title       *string `json:"title" binding:"omitempty,max=200"`
	Description *string `json:"description"`
}

type TodoIdRequest struct {
	TodoId string `json:"todo_id" binding:"required"`
}

type CompleteTodoRequest struct {
	TodoId    string `json:"todo_id" binding:"required"`
	Completed *bool  `json:"completed"`
}

type ListTodoRequest struct {
	GroupId string `json:"group_id"`
}
