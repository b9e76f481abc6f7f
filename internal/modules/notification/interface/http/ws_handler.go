package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	jwtMiddleware "TaskNest/internal/middleware/jwt"
	"TaskNest/internal/modules/notification/application/dto/request"
	"TaskNest/internal/modules/notification/domain/repository"
	userRepository "TaskNest/internal/modules/user/domain/repository"
	"TaskNest/pkg/util"
	"TaskNest/pkg/util/myjwt"
	"TaskNest/pkg/ws"
	"TaskNest/pkg/zlog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const replyTimeout = 2 * time.Second

type WsOptions struct {
	SendBuffer int
	ReadLimit  int64
	PongWait   time.Duration
	PingPeriod time.Duration
}

type WsHandler struct {
	hub       *ws.Hub
	directory repository.GroupDirectory
	userRepo  userRepository.UserInfoRepository
	opts      WsOptions
}

func NewWsHandler(hub *ws.Hub, directory repository.GroupDirectory, userRepo userRepository.UserInfoRepository, opts WsOptions) *WsHandler {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 1 << 20
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	return &WsHandler{hub: hub, directory: directory, userRepo: userRepo, opts: opts}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Connect 握手：校验身份后登记连接，随后处理 join/leave/ping 帧。
// 浏览器原生 WebSocket 无法设置 Header，因此同时支持 ?token= 与 Bearer。
func (h *WsHandler) Connect(c *gin.Context) {
	if !h.hub.Ready() {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	token := c.Query("token")
	if token == "" {
		token = jwtMiddleware.BearerToken(c)
	}
	claims, err := myjwt.ParseToken(token)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	brief, err := h.userRepo.GetUserBriefByUUID(claims.Uuid)
	if err != nil || brief.Status != 0 {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	userID := brief.Uuid

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Error(err.Error())
		return
	}

	client := ws.NewClient(conn, h.opts.SendBuffer, h.opts.PingPeriod)
	channelID := util.GenerateChannelID()
	registry := h.hub.Registry()
	if !h.hub.Register(userID, channelID, client) {
		client.Close()
		return
	}
	defer h.hub.Disconnect(channelID)

	go client.WritePump()

	conn.SetReadLimit(h.opts.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		registry.Touch(channelID)
		return conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	})

	zlog.Info("ws connected", zap.String("user_id", userID), zap.String("channel_id", channelID))
	h.reply(client, "connected", map[string]interface{}{"channelId": channelID, "userId": userID})

	for {
		var frame request.WsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			zlog.Debug("ws read closed", zap.String("channel_id", channelID), zap.Error(err))
			return
		}
		registry.Touch(channelID)
		_ = conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))

		switch frame.Action {
		case request.ActionJoin:
			h.join(c.Request.Context(), client, userID, channelID, frame.Topics)
		case request.ActionLeave:
			registry.Unsubscribe(channelID, frame.Topics)
			h.reply(client, "unsubscribed", map[string]interface{}{"topics": frame.Topics})
		case request.ActionPing:
			h.reply(client, "pong", nil)
		default:
			h.reply(client, "error", map[string]interface{}{"message": "unknown action"})
		}
	}
}

// join 订阅前逐个校验成员身份，未授权的 topic 以 error 帧返回。
// 订阅之后再校验一次：移除成员的清理可能恰好发生在首次校验与订阅之间，
// 复查失败的 topic 会被撤销，复查通过之后发生的移除则由清理本身覆盖。
func (h *WsHandler) join(ctx context.Context, client *ws.Client, userID, channelID string, topics []string) {
	allowed, denied := h.authorize(ctx, userID, topics)
	added := h.hub.Registry().Subscribe(channelID, allowed)

	if len(added) > 0 {
		kept, revoked := h.authorize(ctx, userID, added)
		if len(revoked) > 0 {
			h.hub.Registry().Unsubscribe(channelID, revoked)
			zlog.Info("ws join revoked after membership change",
				zap.String("user_id", userID), zap.String("channel_id", channelID), zap.Strings("topics", revoked))
			allowed = without(allowed, revoked)
			denied = append(denied, revoked...)
		}
		added = kept
	}

	h.reply(client, "subscribed", map[string]interface{}{"topics": allowed, "added": added})
	if len(denied) > 0 {
		h.reply(client, "error", map[string]interface{}{"message": "not a member", "topics": denied})
	}
}

func (h *WsHandler) authorize(ctx context.Context, userID string, topics []string) (allowed, denied []string) {
	allowed = make([]string, 0, len(topics))
	denied = make([]string, 0)
	for _, t := range topics {
		if t == "" {
			continue
		}
		ok, err := h.directory.IsAcceptedMember(ctx, t, userID)
		if err != nil {
			zlog.Error("ws join membership check failed", zap.String("topic", t), zap.String("user_id", userID), zap.Error(err))
		}
		if !ok {
			denied = append(denied, t)
			continue
		}
		allowed = append(allowed, t)
	}
	return allowed, denied
}

func without(list, drop []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !slices.Contains(drop, v) {
			out = append(out, v)
		}
	}
	return out
}

func (h *WsHandler) reply(client *ws.Client, event string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["timestamp"] = time.Now().Format(time.RFC3339Nano)
	payload, err := json.Marshal(ws.Envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	if err := client.Send(ctx, payload); err != nil {
		zlog.Warn("ws reply failed", zap.String("event", event), zap.Error(err))
	}
}
