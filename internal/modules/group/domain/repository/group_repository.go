package repository

import "TaskNest/internal/modules/group/domain/entity"

type GroupInfoRepository interface {
	CreateGroupInfo(group *entity.GroupInfo) error
	GetGroupInfoByUUID(uuid string) (*entity.GroupInfo, error)
	// ListGroupsByMember 用户参与（含待接受邀请）的群组
	ListGroupsByMember(userID string) ([]entity.GroupWithRole, error)
}

type GroupMemberRepository interface {
	CreateMember(member *entity.GroupMember) error
	GetMember(groupID, userID string) (*entity.GroupMember, error)
	UpdateMember(member *entity.GroupMember) error
	DeleteMember(groupID, userID string) error
	ListMembersWithUser(groupID string) ([]entity.MemberWithUser, error)
}

type GroupUnitOfWork interface {
	Transaction(fn func(groupRepo GroupInfoRepository, memberRepo GroupMemberRepository) error) error
}
