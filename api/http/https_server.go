package http

import (
	"context"
	"net/http"
	"time"

	"TaskNest/internal/config"
	jwtMiddleware "TaskNest/internal/middleware/jwt"
	groupService "TaskNest/internal/modules/group/application/service"
	groupPersistence "TaskNest/internal/modules/group/infrastructure/persistence"
	groupHandler "TaskNest/internal/modules/group/interface/http"
	notifyService "TaskNest/internal/modules/notification/application/service"
	"TaskNest/internal/modules/notification/infrastructure/cache"
	notifyPersistence "TaskNest/internal/modules/notification/infrastructure/persistence"
	notifyHandler "TaskNest/internal/modules/notification/interface/http"
	todoService "TaskNest/internal/modules/todo/application/service"
	todoPersistence "TaskNest/internal/modules/todo/infrastructure/persistence"
	todoHandler "TaskNest/internal/modules/todo/interface/http"
	userService "TaskNest/internal/modules/user/application/service"
	userPersistence "TaskNest/internal/modules/user/infrastructure/persistence"
	userHandler "TaskNest/internal/modules/user/interface/http"
	"TaskNest/pkg/ssl"
	"TaskNest/pkg/ws"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Deps 路由装配所需的外部资源，Activity 为 nil 表示不导出活动流
type Deps struct {
	Conf     *config.Config
	DB       *gorm.DB
	Hub      *ws.Hub
	Activity notifyService.ActivitySink
}

// NewServer 装配全部模块并注册路由
func NewServer(deps Deps) (*gin.Engine, error) {
	conf := deps.Conf
	if err := groupHandler.RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	engine.Use(cors.New(corsConfig))
	if conf.MainConfig.TLS {
		engine.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))
	}

	db := deps.DB
	userRepo := userPersistence.NewUserInfoRepository(db)
	groupRepo := groupPersistence.NewGroupInfoRepository(db)
	memberRepo := groupPersistence.NewGroupMemberRepository(db)
	groupUow := groupPersistence.NewGroupUnitOfWork(db)
	todoRepo := todoPersistence.NewTodoRepository(db)
	membership := todoPersistence.NewMembershipReader(db)
	notifyRepo := notifyPersistence.NewNotificationRepository(db)
	directory := notifyPersistence.NewGroupDirectory(db)

	nc := conf.NotifyConfig
	ledgerSvc := notifyService.NewLedgerService(
		notifyRepo,
		cache.NewUnreadCache(time.Duration(nc.UnreadCacheTTLSeconds)*time.Second),
		notifyService.LedgerOptions{DefaultLimit: nc.ListDefaultLimit, MaxLimit: nc.ListMaxLimit},
	)
	deliverySvc := notifyService.NewDeliveryService(ledgerSvc, directory, deps.Hub, deps.Activity, nc.FanoutConcurrency)

	userSvc := userService.NewUserInfoService(userRepo)
	groupSvc := groupService.NewGroupService(groupRepo, memberRepo, groupUow, userRepo, deliverySvc, deps.Hub.Registry())
	todoSvc := todoService.NewTodoService(todoRepo, membership, userRepo, deliverySvc)

	wc := conf.WsConfig
	userH := userHandler.NewUserInfoHandler(userSvc)
	groupH := groupHandler.NewGroupHandler(groupSvc)
	todoH := todoHandler.NewTodoHandler(todoSvc)
	notifyH := notifyHandler.NewNotificationHandler(ledgerSvc)
	wsH := notifyHandler.NewWsHandler(deps.Hub, directory, userRepo, notifyHandler.WsOptions{
		SendBuffer: wc.SendBuffer,
		ReadLimit:  wc.ReadLimitBytes,
		PongWait:   time.Duration(wc.PongWaitSeconds) * time.Second,
		PingPeriod: time.Duration(wc.PingPeriodSeconds) * time.Second,
	})

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
			return
		}
		conns, users, topics := deps.Hub.Registry().Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"hub":         deps.Hub.Ready(),
			"connections": conns,
			"users":       users,
			"topics":      topics,
		})
	})

	engine.POST("/login", userH.Login)
	engine.POST("/register", userH.Register)
	engine.GET("/wss", wsH.Connect)

	authed := engine.Group("/")
	authed.Use(jwtMiddleware.Auth())
	authed.POST("/group/create", groupH.CreateGroup)
	authed.POST("/group/invite", groupH.InviteMember)
	authed.POST("/group/respond", groupH.RespondInvitation)
	authed.POST("/group/changeRole", groupH.ChangeRole)
	authed.POST("/group/removeMember", groupH.RemoveMember)
	authed.POST("/group/leave", groupH.LeaveGroup)
	authed.POST("/group/members", groupH.GetGroupMembers)
	authed.POST("/group/mine", groupH.MyGroups)
	authed.POST("/todo/create", todoH.CreateTodo)
	authed.POST("/todo/update", todoH.UpdateTodo)
	authed.POST("/todo/delete", todoH.DeleteTodo)
	authed.POST("/todo/complete", todoH.CompleteTodo)
	authed.POST("/todo/list", todoH.ListTodos)
	authed.POST("/notification/list", notifyH.List)
	authed.POST("/notification/markRead", notifyH.MarkRead)
	authed.POST("/notification/markAllRead", notifyH.MarkAllRead)
	authed.POST("/notification/unreadCount", notifyH.UnreadCount)

	return engine, nil
}
