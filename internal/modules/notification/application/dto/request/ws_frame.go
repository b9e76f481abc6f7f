package request

// 客户端上行帧的 action
const (
	ActionJoin  = "join"
	ActionLeave = "leave"
	ActionPing  = "ping"
)

// WsFrame 客户端上行帧，topics 为群组 ID
type WsFrame struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}
