package request

type ListNotificationRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=0"`
}

type MarkReadRequest struct {
	NotificationId string `json:"notification_id" binding:"required"`
}
