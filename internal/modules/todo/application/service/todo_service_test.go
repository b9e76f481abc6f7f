package service

import (
	"context"
	"testing"
	"time"

	groupEntity "TaskNest/internal/modules/group/domain/entity"
	notifyService "TaskNest/internal/modules/notification/application/service"
	"TaskNest/internal/modules/notification/domain/compose"
	notifyEntity "TaskNest/internal/modules/notification/domain/entity"
	"TaskNest/internal/modules/todo/application/dto/request"
	"TaskNest/internal/modules/todo/domain/entity"
	"TaskNest/internal/modules/todo/infrastructure/persistence"
	userEntity "TaskNest/internal/modules/user/domain/entity"
	userPersistence "TaskNest/internal/modules/user/infrastructure/persistence"
	"TaskNest/pkg/xerr"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingNotifier struct {
	events []compose.Event
}

func (r *recordingNotifier) NotifyGroupEvent(_ context.Context, ev compose.Event) (*notifyService.DeliveryReport, error) {
	r.events = append(r.events, ev)
	return &notifyService.DeliveryReport{}, nil
}

func (r *recordingNotifier) NotifyDirectEvent(_ context.Context, ev compose.Event) (*notifyService.DeliveryReport, error) {
	r.events = append(r.events, ev)
	return &notifyService.DeliveryReport{}, nil
}

const groupID = "G0000000000000000001"

func newTodoService(t *testing.T) (TodoService, *recordingNotifier) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&userEntity.UserInfo{}, &groupEntity.GroupInfo{}, &groupEntity.GroupMember{}, &entity.Todo{}))

	now := time.Now()
	for _, u := range []string{"A", "B", "C"} {
		require.NoError(t, db.Create(&userEntity.UserInfo{
			Uuid: "U" + u, Username: "user" + u, Nickname: "Nick" + u, Password: "x", CreatedAt: now,
		}).Error)
	}
	require.NoError(t, db.Create(&groupEntity.GroupInfo{
		Uuid: groupID, Name: "Team", OwnerId: "UA", CreatedAt: now, UpdatedAt: now,
	}).Error)
	members := []groupEntity.GroupMember{
		{GroupId: groupID, UserId: "UA", Role: groupEntity.RoleOwner, InvitationStatus: groupEntity.InvitationAccepted, CreatedAt: now, UpdatedAt: now},
		{GroupId: groupID, UserId: "UB", Role: groupEntity.RoleMember, InvitationStatus: groupEntity.InvitationAccepted, CreatedAt: now, UpdatedAt: now},
		{GroupId: groupID, UserId: "UC", Role: groupEntity.RoleMember, InvitationStatus: groupEntity.InvitationPending, CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, db.Create(&members).Error)

	rec := &recordingNotifier{}
	svc := NewTodoService(
		persistence.NewTodoRepository(db),
		persistence.NewMembershipReader(db),
		userPersistence.NewUserInfoRepository(db),
		rec,
	)
	return svc, rec
}

func TestCreateTodo_GroupNotifies(t *testing.T) {
	svc, rec := newTodoService(t)

	item, err := svc.CreateTodo(context.Background(), "UB", request.CreateTodoRequest{GroupId: groupID, Title: "  Buy milk "})

	require.NoError(t, err)
	assert.Equal(t, "Buy milk", item.Title)
	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, notifyEntity.KindTodoAdded, ev.Kind)
	assert.Equal(t, "UB", ev.ActorId)
	assert.Equal(t, "NickB", ev.ActorName)
	assert.Equal(t, "Team", ev.GroupName)
	require.NotNil(t, ev.Todo)
	assert.Equal(t, item.TodoId, ev.Todo.Id)
	assert.Equal(t, "Buy milk", ev.Todo.Title)
}

func TestCreateTodo_PersonalIsSilent(t *testing.T) {
	svc, rec := newTodoService(t)

	item, err := svc.CreateTodo(context.Background(), "UA", request.CreateTodoRequest{Title: "Read"})

	require.NoError(t, err)
	assert.Empty(t, item.GroupId)
	assert.Empty(t, rec.events)
}

func TestCreateTodo_Validation(t *testing.T) {
	svc, rec := newTodoService(t)
	ctx := context.Background()

	_, err := svc.CreateTodo(ctx, "UA", request.CreateTodoRequest{Title: "   "})
	assert.True(t, xerr.Is(err, xerr.BadRequest))

	_, err = svc.CreateTodo(ctx, "UC", request.CreateTodoRequest{GroupId: groupID, Title: "x"})
	assert.True(t, xerr.Is(err, xerr.Forbidden))
	assert.Empty(t, rec.events)
}

func TestCompleteTodo_KindFollowsState(t *testing.T) {
	svc, rec := newTodoService(t)
	ctx := context.Background()
	item, err := svc.CreateTodo(ctx, "UA", request.CreateTodoRequest{GroupId: groupID, Title: "Ship"})
	require.NoError(t, err)
	rec.events = nil

	done, err := svc.CompleteTodo(ctx, "UB", request.CompleteTodoRequest{TodoId: item.TodoId})
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.NotEmpty(t, done.CompletedAt)

	_, err = svc.CompleteTodo(ctx, "UB", request.CompleteTodoRequest{TodoId: item.TodoId})
	require.NoError(t, err)

	reopen := false
	undone, err := svc.CompleteTodo(ctx, "UA", request.CompleteTodoRequest{TodoId: item.TodoId, Completed: &reopen})
	require.NoError(t, err)
	assert.False(t, undone.Completed)
	assert.Empty(t, undone.CompletedAt)

	require.Len(t, rec.events, 2)
	assert.Equal(t, notifyEntity.KindTodoCompleted, rec.events[0].Kind)
	assert.True(t, rec.events[0].Todo.Completed)
	assert.Equal(t, notifyEntity.KindTodoUpdated, rec.events[1].Kind)
}

func TestUpdateAndDeleteTodo(t *testing.T) {
	svc, rec := newTodoService(t)
	ctx := context.Background()
	item, err := svc.CreateTodo(ctx, "UA", request.CreateTodoRequest{GroupId: groupID, Title: "Draft"})
	require.NoError(t, err)
	rec.events = nil

	title := "Final"
	updated, err := svc.UpdateTodo(ctx, "UB", request.UpdateTodoRequest{TodoId: item.TodoId, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)

	require.NoError(t, svc.DeleteTodo(ctx, "UA", request.TodoIdRequest{TodoId: item.TodoId}))

	err = svc.DeleteTodo(ctx, "UA", request.TodoIdRequest{TodoId: item.TodoId})
	assert.True(t, xerr.Is(err, xerr.NotFound))

	require.Len(t, rec.events, 2)
	assert.Equal(t, notifyEntity.KindTodoUpdated, rec.events[0].Kind)
	assert.Equal(t, notifyEntity.KindTodoDeleted, rec.events[1].Kind)
	assert.Equal(t, "Final", rec.events[1].Todo.Title)
}

func TestPersonalTodo_OwnerOnly(t *testing.T) {
	svc, _ := newTodoService(t)
	ctx := context.Background()
	item, err := svc.CreateTodo(ctx, "UA", request.CreateTodoRequest{Title: "Private"})
	require.NoError(t, err)

	_, err = svc.CompleteTodo(ctx, "UB", request.CompleteTodoRequest{TodoId: item.TodoId})
	assert.True(t, xerr.Is(err, xerr.NotFound))

	mine, err := svc.ListTodos(ctx, "UA", request.ListTodoRequest{})
	require.NoError(t, err)
	require.Len(t, mine, 1)

	theirs, err := svc.ListTodos(ctx, "UB", request.ListTodoRequest{})
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestListTodos_GroupRequiresMembership(t *testing.T) {
	svc, _ := newTodoService(t)
	ctx := context.Background()
	_, err := svc.CreateTodo(ctx, "UA", request.CreateTodoRequest{GroupId: groupID, Title: "One"})
	require.NoError(t, err)

	list, err := svc.ListTodos(ctx, "UB", request.ListTodoRequest{GroupId: groupID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListTodos(ctx, "UC", request.ListTodoRequest{GroupId: groupID})
	assert.True(t, xerr.Is(err, xerr.Forbidden))
}
