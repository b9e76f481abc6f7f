package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"TaskNest/internal/modules/group/application/dto/request"
	"TaskNest/internal/modules/group/application/dto/respond"
	"TaskNest/internal/modules/group/domain/entity"
	"TaskNest/internal/modules/group/domain/repository"
	notifyService "TaskNest/internal/modules/notification/application/service"
	"TaskNest/internal/modules/notification/domain/compose"
	notifyEntity "TaskNest/internal/modules/notification/domain/entity"
	userRepository "TaskNest/internal/modules/user/domain/repository"
	"TaskNest/pkg/util"
	"TaskNest/pkg/xerr"
	"TaskNest/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubscriptionCleaner 成员被移出或退出后清理其实时订阅，由 ws.Registry 实现
type SubscriptionCleaner interface {
	UnsubscribeUser(userID, topicID string) int
}

type GroupService interface {
	CreateGroup(ctx context.Context, ownerID string, req request.CreateGroupRequest) (*respond.GroupRespond, error)
	InviteMember(ctx context.Context, actorID string, req request.InviteMemberRequest) error
	RespondInvitation(ctx context.Context, userID string, req request.RespondInvitationRequest) error
	ChangeRole(ctx context.Context, actorID string, req request.ChangeRoleRequest) error
	RemoveMember(ctx context.Context, actorID string, req request.RemoveMemberRequest) error
	LeaveGroup(ctx context.Context, userID string, req request.GroupIdRequest) error
	GetGroupMembers(ctx context.Context, userID string, req request.GroupIdRequest) ([]*respond.GroupMemberRespond, error)
	MyGroups(ctx context.Context, userID string) ([]*respond.GroupRespond, error)
}

type groupServiceImpl struct {
	groupRepo  repository.GroupInfoRepository
	memberRepo repository.GroupMemberRepository
	uow        repository.GroupUnitOfWork
	userRepo   userRepository.UserInfoRepository
	notifier   notifyService.DeliveryService
	cleaner    SubscriptionCleaner
}

func NewGroupService(
	groupRepo repository.GroupInfoRepository,
	memberRepo repository.GroupMemberRepository,
	uow repository.GroupUnitOfWork,
	userRepo userRepository.UserInfoRepository,
	notifier notifyService.DeliveryService,
	cleaner SubscriptionCleaner,
) GroupService {
	return &groupServiceImpl{
		groupRepo:  groupRepo,
		memberRepo: memberRepo,
		uow:        uow,
		userRepo:   userRepo,
		notifier:   notifier,
		cleaner:    cleaner,
	}
}

func (s *groupServiceImpl) CreateGroup(ctx context.Context, ownerID string, req request.CreateGroupRequest) (*respond.GroupRespond, error) {
	req.Name = strings.TrimSpace(req.Name)
	if ownerID == "" || req.Name == "" {
		return nil, xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}

	now := time.Now()
	group := &entity.GroupInfo{
		Uuid:      util.GenerateGroupID(),
		Name:      req.Name,
		OwnerId:   ownerID,
		Status:    entity.GroupStatusNormal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.uow.Transaction(func(groupRepo repository.GroupInfoRepository, memberRepo repository.GroupMemberRepository) error {
		if err := groupRepo.CreateGroupInfo(group); err != nil {
			return err
		}
		return memberRepo.CreateMember(&entity.GroupMember{
			GroupId:          group.Uuid,
			UserId:           ownerID,
			Role:             entity.RoleOwner,
			InvitationStatus: entity.InvitationAccepted,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	})
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}

	return &respond.GroupRespond{
		GroupId:          group.Uuid,
		Name:             group.Name,
		OwnerId:          group.OwnerId,
		Role:             entity.RoleOwner,
		InvitationStatus: entity.InvitationAccepted,
		CreatedAt:        group.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *groupServiceImpl) InviteMember(ctx context.Context, actorID string, req request.InviteMemberRequest) error {
	group, actor, err := s.loadActor(req.GroupId, actorID)
	if err != nil {
		return err
	}
	if !actor.CanManage() {
		return xerr.New(xerr.Forbidden, "只有群主或管理员可以邀请成员")
	}
	if req.UserId == actorID {
		return xerr.New(xerr.BadRequest, "不能邀请自己")
	}
	if _, err := s.userRepo.GetUserBriefByUUID(req.UserId); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return xerr.New(xerr.NotFound, "用户不存在")
		}
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}

	now := time.Now()
	err = s.uow.Transaction(func(_ repository.GroupInfoRepository, memberRepo repository.GroupMemberRepository) error {
		existing, err := memberRepo.GetMember(group.Uuid, req.UserId)
		if err == nil {
			if existing.InvitationStatus != entity.InvitationDeclined {
				return xerr.New(xerr.Conflict, "该用户已在群组中或已被邀请")
			}
			// 拒绝过的邀请可以重新发起
			existing.InvitationStatus = entity.InvitationPending
			existing.Role = entity.RoleMember
			existing.InvitedBy = actorID
			existing.UpdatedAt = now
			return memberRepo.UpdateMember(existing)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return memberRepo.CreateMember(&entity.GroupMember{
			GroupId:          group.Uuid,
			UserId:           req.UserId,
			Role:             entity.RoleMember,
			InvitationStatus: entity.InvitationPending,
			InvitedBy:        actorID,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	})
	if err != nil {
		return toCodeError(err)
	}

	s.notifyDirect(ctx, compose.Event{
		Kind:         notifyEntity.KindGroupInvited,
		ActorId:      actorID,
		ActorName:    s.displayName(actorID),
		GroupId:      group.Uuid,
		GroupName:    group.Name,
		TargetUserId: req.UserId,
	})
	return nil
}

func (s *groupServiceImpl) RespondInvitation(ctx context.Context, userID string, req request.RespondInvitationRequest) error {
	group, member, err := s.loadActor(req.GroupId, userID)
	if err != nil {
		return err
	}
	if member.InvitationStatus != entity.InvitationPending {
		return xerr.New(xerr.Conflict, "没有待处理的邀请")
	}

	member.InvitationStatus = entity.InvitationDeclined
	if req.Accept {
		member.InvitationStatus = entity.InvitationAccepted
	}
	member.UpdatedAt = time.Now()
	if err := s.memberRepo.UpdateMember(member); err != nil {
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}

	if req.Accept {
		s.notifyGroup(ctx, compose.Event{
			Kind:      notifyEntity.KindGroupJoined,
			ActorId:   userID,
			ActorName: s.displayName(userID),
			GroupId:   group.Uuid,
			GroupName: group.Name,
		})
	}
	return nil
}

func (s *groupServiceImpl) ChangeRole(ctx context.Context, actorID string, req request.ChangeRoleRequest) error {
	if req.Role != entity.RoleAdmin && req.Role != entity.RoleMember {
		return xerr.New(xerr.BadRequest, "角色只能是 admin 或 member")
	}
	group, actor, err := s.loadActor(req.GroupId, actorID)
	if err != nil {
		return err
	}
	if !actor.Accepted() || actor.Role != entity.RoleOwner {
		return xerr.New(xerr.Forbidden, "只有群主可以修改角色")
	}
	target, err := s.memberRepo.GetMember(group.Uuid, req.UserId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return xerr.New(xerr.NotFound, "成员不存在")
		}
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}
	if !target.Accepted() {
		return xerr.New(xerr.Conflict, "成员尚未加入群组")
	}
	if target.Role == entity.RoleOwner {
		return xerr.New(xerr.Forbidden, "不能修改群主角色")
	}
	if target.Role == req.Role {
		return nil
	}

	target.Role = req.Role
	target.UpdatedAt = time.Now()
	if err := s.memberRepo.UpdateMember(target); err != nil {
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}

	s.notifyGroup(ctx, compose.Event{
		Kind:           notifyEntity.KindGroupRoleChanged,
		ActorId:        actorID,
		ActorName:      s.displayName(actorID),
		GroupId:        group.Uuid,
		GroupName:      group.Name,
		TargetUserId:   target.UserId,
		TargetUserName: s.displayName(target.UserId),
		Role:           req.Role,
	})
	return nil
}

// RemoveMember 提交删除后先投递 group:removed，再清理被移除者的订阅
func (s *groupServiceImpl) RemoveMember(ctx context.Context, actorID string, req request.RemoveMemberRequest) error {
	group, actor, err := s.loadActor(req.GroupId, actorID)
	if err != nil {
		return err
	}
	if !actor.CanManage() {
		return xerr.New(xerr.Forbidden, "只有群主或管理员可以移除成员")
	}
	if req.UserId == actorID {
		return xerr.New(xerr.BadRequest, "请使用退出群组")
	}
	target, err := s.memberRepo.GetMember(group.Uuid, req.UserId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return xerr.New(xerr.NotFound, "成员不存在")
		}
		zlog.Error(err.Error())
		return xerr.ErrServerError
	}
	if target.Role == entity.RoleOwner {
		return xerr.New(xerr.Forbidden, "不能移除群主")
	}
	if target.Role == entity.RoleAdmin && actor.Role != entity.RoleOwner {
		return xerr.New(xerr.Forbidden, "只有群主可以移除管理员")
	}

	if err := s.memberRepo.DeleteMember(group.Uuid, req.UserId); err != nil {
		return toCodeError(err)
	}

	s.notifyDirect(ctx, compose.Event{
		Kind:         notifyEntity.KindGroupRemoved,
		ActorId:      actorID,
		ActorName:    s.displayName(actorID),
		GroupId:      group.Uuid,
		GroupName:    group.Name,
		TargetUserId: req.UserId,
	})
	s.dropSubscriptions(req.UserId, group.Uuid)
	return nil
}

func (s *groupServiceImpl) LeaveGroup(ctx context.Context, userID string, req request.GroupIdRequest) error {
	group, member, err := s.loadActor(req.GroupId, userID)
	if err != nil {
		return err
	}
	if member.Role == entity.RoleOwner {
		return xerr.New(xerr.Forbidden, "群主不能退出群组")
	}
	if err := s.memberRepo.DeleteMember(group.Uuid, userID); err != nil {
		return toCodeError(err)
	}
	s.dropSubscriptions(userID, group.Uuid)
	return nil
}

func (s *groupServiceImpl) GetGroupMembers(ctx context.Context, userID string, req request.GroupIdRequest) ([]*respond.GroupMemberRespond, error) {
	group, member, err := s.loadActor(req.GroupId, userID)
	if err != nil {
		return nil, err
	}
	if !member.Accepted() {
		return nil, xerr.New(xerr.Forbidden, "不是群组成员")
	}
	rows, err := s.memberRepo.ListMembersWithUser(group.Uuid)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	out := make([]*respond.GroupMemberRespond, 0, len(rows))
	for _, r := range rows {
		out = append(out, &respond.GroupMemberRespond{
			UserId:           r.UserId,
			Username:         r.Username,
			Nickname:         r.Nickname,
			Avatar:           r.Avatar,
			Role:             r.Role,
			InvitationStatus: r.InvitationStatus,
		})
	}
	return out, nil
}

func (s *groupServiceImpl) MyGroups(ctx context.Context, userID string) ([]*respond.GroupRespond, error) {
	rows, err := s.groupRepo.ListGroupsByMember(userID)
	if err != nil {
		zlog.Error(err.Error())
		return nil, xerr.ErrServerError
	}
	out := make([]*respond.GroupRespond, 0, len(rows))
	for _, g := range rows {
		out = append(out, &respond.GroupRespond{
			GroupId:          g.Uuid,
			Name:             g.Name,
			OwnerId:          g.OwnerId,
			Role:             g.Role,
			InvitationStatus: g.InvitationStatus,
			CreatedAt:        g.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// loadActor 读取群组与操作者的成员关系，任一不存在都返回 NotFound
func (s *groupServiceImpl) loadActor(groupID, userID string) (*entity.GroupInfo, *entity.GroupMember, error) {
	if groupID == "" || userID == "" {
		return nil, nil, xerr.New(xerr.BadRequest, xerr.ErrParam.Message)
	}
	group, err := s.groupRepo.GetGroupInfoByUUID(groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, xerr.New(xerr.NotFound, "群组不存在")
		}
		zlog.Error(err.Error())
		return nil, nil, xerr.ErrServerError
	}
	member, err := s.memberRepo.GetMember(groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, xerr.New(xerr.NotFound, "不是群组成员")
		}
		zlog.Error(err.Error())
		return nil, nil, xerr.ErrServerError
	}
	return group, member, nil
}

func (s *groupServiceImpl) displayName(userID string) string {
	brief, err := s.userRepo.GetUserBriefByUUID(userID)
	if err != nil {
		return ""
	}
	return brief.DisplayName()
}

// 通知是已提交状态的副作用，失败只记录日志，不影响业务结果
func (s *groupServiceImpl) notifyGroup(ctx context.Context, ev compose.Event) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.NotifyGroupEvent(context.WithoutCancel(ctx), ev); err != nil {
		zlog.Warn("group event notification failed", zap.String("event", string(ev.Kind)), zap.String("group_id", ev.GroupId), zap.Error(err))
	}
}

func (s *groupServiceImpl) notifyDirect(ctx context.Context, ev compose.Event) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.NotifyDirectEvent(context.WithoutCancel(ctx), ev); err != nil {
		zlog.Warn("direct notification failed", zap.String("event", string(ev.Kind)), zap.String("target_user_id", ev.TargetUserId), zap.Error(err))
	}
}

func (s *groupServiceImpl) dropSubscriptions(userID, groupID string) {
	if s.cleaner == nil {
		return
	}
	if n := s.cleaner.UnsubscribeUser(userID, groupID); n > 0 {
		zlog.Info("dropped topic subscriptions", zap.String("user_id", userID), zap.String("group_id", groupID), zap.Int("connections", n))
	}
}

func toCodeError(err error) error {
	var ce *xerr.CodeError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return xerr.New(xerr.NotFound, "成员不存在")
	}
	zlog.Error(err.Error())
	return xerr.ErrServerError
}
