package util

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID 生成一个标准的 UUID (v4)
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateShortUUID 生成一个不带中划线的短 UUID
func GenerateShortUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// 业务 ID 统一为 20 位：1 位前缀 + 19 位短 UUID
func prefixedID(prefix string) string {
	return prefix + GenerateShortUUID()[:19]
}

func GenerateUserID() string         { return prefixedID("U") }
func GenerateGroupID() string        { return prefixedID("G") }
func GenerateTodoID() string         { return prefixedID("T") }
func GenerateNotificationID() string { return prefixedID("N") }

// GenerateChannelID 生成 websocket 连接句柄
func GenerateChannelID() string { return prefixedID("C") }
