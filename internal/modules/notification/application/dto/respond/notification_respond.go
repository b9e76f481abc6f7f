package respond

type NotificationItem struct {
	NotificationId string                 `json:"notification_id"`
	Kind           string                 `json:"kind"`
	Message        string                 `json:"message"`
	ActorId        string                 `json:"actor_id,omitempty"`
	ActorName      string                 `json:"actor_name,omitempty"`
	GroupId        string                 `json:"group_id,omitempty"`
	GroupName      string                 `json:"group_name,omitempty"`
	TodoId         string                 `json:"todo_id,omitempty"`
	Payload        map[string]interface{} `json:"payload,omitempty"`
	Read           bool                   `json:"read"`
	ReadAt         string                 `json:"read_at,omitempty"`
	CreatedAt      string                 `json:"created_at"`
}

type UnreadCountRespond struct {
	Count int64 `json:"count"`
}

type MarkAllReadRespond struct {
	Updated int64 `json:"updated"`
}
