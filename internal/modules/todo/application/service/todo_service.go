package service

import (
	"context"
	"errors"
	"strings"
	"time"

	notifyService "TaskNest/internal/modules/notification/application/service"
	"TaskNest/internal/modules/notification/domain/compose"
	notifyEntity "TaskNest/internal/modules/notification/domain/entity"
	"TaskNest/internal/modules/todo/application/dto/request"
	"TaskNest/internal/modules/todo/application/dto/respond"
	"TaskNest/internal/modules/todo/domain/entity"
	"TaskNest/internal/modules/todo/domain/repository"
	userRepository "TaskNest/internal/modules/user/domain/repository"
	"TaskNest/pkg/util"
	"TaskNest/pkg/xerr"
	"TaskNest/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TodoService interface {
	CreateTodo(ctx context.Context, userID string, req request.CreateTodoRequest) (*respond.TodoItem, error)
	UpdateTodo(ctx context.Context, userID string, req request.UpdateTodoRequest) (*respond.TodoItem, error)
	DeleteTodo(ctx context.Context, userID string, req request.TodoIdRequest) error
	CompleteTodo(ctx context.Context, userID string, req request.CompleteTodoRequest) (*respond.TodoItem, error)
	ListTodos(ctx context.Context, userID string, req request.ListTodoRequest) ([]*respond.TodoItem, error)
}

type todoServiceImpl struct {
	repo     repository.TodoRepository
	members  repository.MembershipReader
	userRepo userRepository.UserInfoRepository
	notifier notifyService.DeliveryService
}

func NewTodoService(repo repository.TodoRepository, members repository.MembershipReader, userRepo userRepository.UserInfoRepository, notifier notifyService.DeliveryService) TodoService {
	return &todoServiceImpl{repo: repo, members: members, userRepo: userRepo, notifier: notifier}
}

func (s *todoServiceImpl) CreateTodo(ctx context.Context, userID string, req request.CreateTodoRequest) (*respond.TodoItem, error) {
	req.Title = strings.TrimSpace(req.Title)
	if userID == "" || req.Title == "" {
		return nil, xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}

	var groupName string
	if req.GroupId != "" {
		name, err := s.groupAccess(req.GroupId, userID)
		if err != nil {
			return nil, err
		}
		groupName = name
	}

	now := time.Now()
	todo := &entity.Todo{
		Uuid:        util.GenerateTodoID(),
		OwnerId:     userID,
		GroupId:     req.GroupId,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateTodo(todo); err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	s.notify(ctx, notifyEntity.KindTodoAdded, userID, groupName, todo)
	return toItem(todo), nil
}

func (s *todoServiceImpl) UpdateTodo(ctx context.Context, userID string, req request.UpdateTodoRequest) (*respond.TodoItem, error) {
	todo, groupName, err := s.loadForWrite(req.TodoId, userID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, xerr.New(xerr.BadRequest, "标题不能为空")
		}
		todo.Title = title
	}
	if req.Description != nil {
		todo.Description = *req.Description
	}
	todo.UpdatedAt = time.Now()
	if err := s.repo.UpdateTodo(todo); err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	s.notify(ctx, notifyEntity.KindTodoUpdated, userID, groupName, todo)
	return toItem(todo), nil
}

func (s *todoServiceImpl) DeleteTodo(ctx context.Context, userID string, req request.TodoIdRequest) error {
	todo, groupName, err := s.loadForWrite(req.TodoId, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTodo(todo.Uuid); err != nil {
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}

	s.notify(ctx, notifyEntity.KindTodoDeleted, userID, groupName, todo)
	return nil
}

// CompleteTodo completed 缺省为 true；取消完成按普通更新通知
func (s *todoServiceImpl) CompleteTodo(ctx context.Context, userID string, req request.CompleteTodoRequest) (*respond.TodoItem, error) {
	todo, groupName, err := s.loadForWrite(req.TodoId, userID)
	if err != nil {
		return nil, err
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	if todo.Completed == completed {
		return toItem(todo), nil
	}

	now := time.Now()
	todo.Completed = completed
	todo.UpdatedAt = now
	todo.CompletedAt = nil
	if completed {
		todo.CompletedAt = &now
	}
	if err := s.repo.UpdateTodo(todo); err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	kind := notifyEntity.KindTodoUpdated
	if completed {
		kind = notifyEntity.KindTodoCompleted
	}
	s.notify(ctx, kind, userID, groupName, todo)
	return toItem(todo), nil
}

func (s *todoServiceImpl) ListTodos(ctx context.Context, userID string, req request.ListTodoRequest) ([]*respond.TodoItem, error) {
	var (
		rows []entity.Todo
		err  error
	)
	if req.GroupId == "" {
		rows, err = s.repo.ListPersonal(userID)
	} else {
		if _, err := s.groupAccess(req.GroupId, userID); err != nil {
			return nil, err
		}
		rows, err = s.repo.ListByGroup(req.GroupId)
	}
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	out := make([]*respond.TodoItem, 0, len(rows))
	for i := range rows {
		out = append(out, toItem(&rows[i]))
	}
	return out, nil
}

// loadForWrite 个人待办只有创建者可写，群组待办要求已接受的成员身份
func (s *todoServiceImpl) loadForWrite(todoID, userID string) (*entity.Todo, string, error) {
	if todoID == "" || userID == "" {
		return nil, "", xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}
	todo, err := s.repo.GetTodoByUUID(todoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", xerr.New(xerr.NotFound, "待办不存在")
		}
		zlog.Error(err.Error())
		return nil, "", xerr.ErrServerError
	}
	if todo.Personal() {
		if todo.OwnerId != userID {
			return nil, "", xerr.New(xerr.NotFound, "待办不存在")
		}
		return todo, "", nil
	}
	name, err := s.groupAccess(todo.GroupId, userID)
	if err != nil {
		return nil, "", err
	}
	return todo, name, nil
}

func (s *todoServiceImpl) groupAccess(groupID, userID string) (string, error) {
	name, err := s.members.AcceptedGroupName(groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", xerr.New(xerr.Forbidden, "不是群组成员")
		}
		zlog.Error(err.Error())
		return "", xerr.ErrServerError
	}
	return name, nil
}

// notify 个人待办不产生通知；群组待办在数据提交后通知其他成员
func (s *todoServiceImpl) notify(ctx context.Context, kind notifyEntity.Kind, actorID, groupName string, todo *entity.Todo) {
	if s.notifier == nil || todo.Personal() {
		return
	}
	var actorName string
	if brief, err := s.userRepo.GetUserBriefByUUID(actorID); err == nil {
		actorName = brief.DisplayName()
	}
	ev := compose.Event{
		Kind:      kind,
		ActorId:   actorID,
		ActorName: actorName,
		GroupId:   todo.GroupId,
		GroupName: groupName,
		Todo:      &compose.TodoRef{Id: todo.Uuid, Title: todo.Title, Completed: todo.Completed},
	}
	if _, err := s.notifier.NotifyGroupEvent(context.WithoutCancel(ctx), ev); err != nil {
		zlog.Warn("todo notification failed", zap.String("event", string(kind)), zap.String("todo_id", todo.Uuid), zap.Error(err))
	}
}

func toItem(t *entity.Todo) *respond.TodoItem {
	item := &respond.TodoItem{
		TodoId:      t.Uuid,
		OwnerId:     t.OwnerId,
		GroupId:     t.GroupId,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339),
	}
	if t.CompletedAt != nil {
		item.CompletedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return item
}
