package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	groupEntity "TaskNest/internal/modules/group/domain/entity"
	"TaskNest/internal/modules/notification/domain/entity"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&entity.Notification{}, &groupEntity.GroupInfo{}, &groupEntity.GroupMember{}))
	return db
}

func seed(t *testing.T, repo interface {
	Create(context.Context, *entity.Notification) error
}, recipient string, n int, base time.Time) []*entity.Notification {
	t.Helper()
	out := make([]*entity.Notification, 0, n)
	for i := 0; i < n; i++ {
		row := &entity.Notification{
			NotificationId: fmt.Sprintf("N%s%03d", recipient, i),
			RecipientId:    recipient,
			ActorId:        "A",
			Kind:           entity.KindTodoAdded,
			Message:        fmt.Sprintf("msg %d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Microsecond),
		}
		require.NoError(t, repo.Create(context.Background(), row))
		out = append(out, row)
	}
	return out
}

func TestNotificationRepository_ListNewestFirstWithLimit(t *testing.T) {
	repo := NewNotificationRepository(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seed(t, repo, "U1", 5, base)
	seed(t, repo, "U2", 2, base)

	got, err := repo.ListByRecipient(ctx, "U1", 3)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "msg 4", got[0].Message)
	assert.Equal(t, "msg 3", got[1].Message)
	assert.Equal(t, "msg 2", got[2].Message)
	for _, n := range got {
		assert.Equal(t, "U1", n.RecipientId)
	}
}

func TestNotificationRepository_OwnershipScoping(t *testing.T) {
	repo := NewNotificationRepository(openTestDB(t))
	ctx := context.Background()
	rows := seed(t, repo, "U1", 1, time.Now().UTC())

	_, err := repo.GetByIDAndRecipient(ctx, rows[0].NotificationId, "U2")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	affected, err := repo.MarkRead(ctx, rows[0].NotificationId, "U2", time.Now())
	require.NoError(t, err)
	assert.Zero(t, affected)

	unread, err := repo.CountUnread(ctx, "U1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestNotificationRepository_MarkReadOnlyOnce(t *testing.T) {
	repo := NewNotificationRepository(openTestDB(t))
	ctx := context.Background()
	rows := seed(t, repo, "U1", 2, time.Now().UTC())

	affected, err := repo.MarkRead(ctx, rows[0].NotificationId, "U1", time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)

	affected, err = repo.MarkRead(ctx, rows[0].NotificationId, "U1", time.Now())
	require.NoError(t, err)
	assert.Zero(t, affected)

	n, err := repo.GetByIDAndRecipient(ctx, rows[0].NotificationId, "U1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.NotNil(t, n.ReadAt)
}

func TestNotificationRepository_MarkAllRead(t *testing.T) {
	repo := NewNotificationRepository(openTestDB(t))
	ctx := context.Background()
	seed(t, repo, "U1", 3, time.Now().UTC())
	seed(t, repo, "U2", 1, time.Now().UTC())

	affected, err := repo.MarkAllRead(ctx, "U1", time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 3, affected)

	affected, err = repo.MarkAllRead(ctx, "U1", time.Now())
	require.NoError(t, err)
	assert.Zero(t, affected)

	unread, err := repo.CountUnread(ctx, "U2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestGroupDirectory(t *testing.T) {
	db := openTestDB(t)
	dir := NewGroupDirectory(db)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, db.Create(&groupEntity.GroupInfo{Uuid: "G1", Name: "Home", OwnerId: "A", CreatedAt: now, UpdatedAt: now}).Error)
	for _, m := range []groupEntity.GroupMember{
		{GroupId: "G1", UserId: "A", Role: groupEntity.RoleOwner, InvitationStatus: groupEntity.InvitationAccepted},
		{GroupId: "G1", UserId: "B", Role: groupEntity.RoleMember, InvitationStatus: groupEntity.InvitationAccepted},
		{GroupId: "G1", UserId: "C", Role: groupEntity.RoleMember, InvitationStatus: groupEntity.InvitationPending},
	} {
		m.CreatedAt, m.UpdatedAt = now, now
		require.NoError(t, db.Create(&m).Error)
	}

	aud, err := dir.GetGroupAudience(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, "Home", aud.GroupName)
	require.Len(t, aud.Members, 3)
	assert.Equal(t, entity.InvitationPending, aud.Members[2].InvitationStatus)

	_, err = dir.GetGroupAudience(ctx, "G-missing")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	ok, err := dir.IsAcceptedMember(ctx, "G1", "B")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = dir.IsAcceptedMember(ctx, "G1", "C")
	require.NoError(t, err)
	assert.False(t, ok)
}
