package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"TaskNest/internal/modules/notification/application/dto/respond"
	"TaskNest/internal/modules/notification/domain/compose"
	"TaskNest/internal/modules/notification/domain/entity"
	"TaskNest/internal/modules/notification/infrastructure/mq"
	"TaskNest/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeLedger struct {
	mu      sync.Mutex
	created []CreateInput
	failFor map[string]bool
	// blockFor 写入这些接收者前等待对应通道关闭
	blockFor map[string]chan struct{}
}

func (f *fakeLedger) Create(_ context.Context, in CreateInput) (*entity.Notification, error) {
	if ch := f.blockFor[in.RecipientId]; ch != nil {
		<-ch
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[in.RecipientId] {
		return nil, errors.New("db down")
	}
	f.created = append(f.created, in)
	return &entity.Notification{NotificationId: "N-" + in.RecipientId, RecipientId: in.RecipientId, Kind: in.Kind}, nil
}

func (f *fakeLedger) ListForUser(context.Context, string, int) ([]respond.NotificationItem, error) {
	return nil, nil
}
func (f *fakeLedger) MarkRead(context.Context, string, string) error { return nil }
func (f *fakeLedger) MarkAllRead(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeLedger) UnreadCount(context.Context, string) (int64, error) { return 0, nil }

func (f *fakeLedger) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.created))
	for _, c := range f.created {
		out = append(out, c.RecipientId)
	}
	return out
}

type fakeDirectory struct {
	audience *entity.GroupAudience
	err      error
	calls    int
}

func (f *fakeDirectory) GetGroupAudience(context.Context, string) (*entity.GroupAudience, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.audience, nil
}

func (f *fakeDirectory) IsAcceptedMember(context.Context, string, string) (bool, error) {
	return true, nil
}

type pushCall struct {
	user, topic, event, exclude string
	data                        map[string]interface{}
}

type fakePusher struct {
	mu     sync.Mutex
	online map[string]bool
	user   []pushCall
	topics []pushCall
	// pushed 非 nil 时每次用户推送后写入接收者
	pushed chan string
}

func (f *fakePusher) PushToUserOutside(userID, topicID, event string, data map[string]interface{}) bool {
	f.mu.Lock()
	f.user = append(f.user, pushCall{user: userID, topic: topicID, event: event, data: data})
	online := f.online[userID]
	f.mu.Unlock()
	if f.pushed != nil {
		f.pushed <- userID
	}
	return online
}

func (f *fakePusher) PushToTopic(topicID, event string, data map[string]interface{}, exclude string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, pushCall{topic: topicID, event: event, exclude: exclude, data: data})
	return true
}

type fakeActivity struct {
	acts []mq.Activity
	err  error
}

func (f *fakeActivity) PublishActivity(_ context.Context, a mq.Activity) error {
	f.acts = append(f.acts, a)
	return f.err
}

func groupG() *entity.GroupAudience {
	return &entity.GroupAudience{
		GroupId:   "G",
		GroupName: "Team",
		Members: []entity.Member{
			{UserId: "A", Role: "admin", InvitationStatus: entity.InvitationAccepted},
			{UserId: "B", Role: "member", InvitationStatus: entity.InvitationAccepted},
			{UserId: "C", Role: "member", InvitationStatus: entity.InvitationPending},
		},
	}
}

func TestNotifyGroupEvent_TodoAdded(t *testing.T) {
	ledger := &fakeLedger{}
	pusher := &fakePusher{online: map[string]bool{"B": true}}
	activity := &fakeActivity{}
	svc := NewDeliveryService(ledger, &fakeDirectory{audience: groupG()}, pusher, activity, 4)

	report, err := svc.NotifyGroupEvent(context.Background(), compose.Event{
		Kind:      entity.KindTodoAdded,
		ActorId:   "A",
		ActorName: "Ann",
		GroupId:   "G",
		Todo:      &compose.TodoRef{Id: "T1", Title: "Ship it"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, ledger.recipients())
	assert.Equal(t, entity.KindTodoAdded, ledger.created[0].Kind)
	assert.Equal(t, `Ann added "Ship it" to Team`, ledger.created[0].Message)
	assert.Equal(t, "T1", ledger.created[0].RelatedTodoId)
	assert.Equal(t, &DeliveryReport{Recipients: 1, Persisted: 1, Pushed: 1, TopicPushed: true}, report)

	require.Len(t, pusher.user, 1)
	assert.Equal(t, "B", pusher.user[0].user)
	assert.Equal(t, "G", pusher.user[0].topic)
	assert.Equal(t, "N-B", pusher.user[0].data["notificationId"])

	require.Len(t, pusher.topics, 1)
	assert.Equal(t, "A", pusher.topics[0].exclude)
	assert.Equal(t, "todo:added", pusher.topics[0].event)
	assert.Equal(t, "Team", pusher.topics[0].data["groupName"])

	require.Len(t, activity.acts, 1)
	assert.Equal(t, 1, activity.acts[0].Recipients)
}

func TestNotifyGroupEvent_ActorNeverNotified(t *testing.T) {
	for _, actor := range []string{"A", "B", "C"} {
		ledger := &fakeLedger{}
		pusher := &fakePusher{}
		svc := NewDeliveryService(ledger, &fakeDirectory{audience: groupG()}, pusher, nil, 2)

		_, err := svc.NotifyGroupEvent(context.Background(), compose.Event{Kind: entity.KindGroupJoined, ActorId: actor, GroupId: "G"})

		require.NoError(t, err)
		assert.NotContains(t, ledger.recipients(), actor)
		assert.NotContains(t, ledger.recipients(), "C")
		for _, p := range pusher.user {
			assert.NotEqual(t, actor, p.user)
		}
	}
}

func TestNotifyGroupEvent_LedgerFailureIsolated(t *testing.T) {
	dir := &fakeDirectory{audience: &entity.GroupAudience{
		GroupId: "G",
		Members: []entity.Member{
			{UserId: "A", InvitationStatus: entity.InvitationAccepted},
			{UserId: "B", InvitationStatus: entity.InvitationAccepted},
			{UserId: "D", InvitationStatus: entity.InvitationAccepted},
			{UserId: "E", InvitationStatus: entity.InvitationAccepted},
		},
	}}
	ledger := &fakeLedger{failFor: map[string]bool{"D": true}}
	pusher := &fakePusher{}
	svc := NewDeliveryService(ledger, dir, pusher, nil, 1)

	report, err := svc.NotifyGroupEvent(context.Background(), compose.Event{Kind: entity.KindTodoUpdated, ActorId: "A", GroupId: "G"})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "E"}, ledger.recipients())
	assert.Equal(t, 3, report.Recipients)
	assert.Equal(t, 2, report.Persisted)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, pusher.user, 3)
}

func TestNotifyGroupEvent_MalformedRejectedBeforeAnyCall(t *testing.T) {
	ledger := &fakeLedger{}
	dir := &fakeDirectory{audience: groupG()}
	pusher := &fakePusher{}
	svc := NewDeliveryService(ledger, dir, pusher, nil, 2)

	_, err := svc.NotifyGroupEvent(context.Background(), compose.Event{Kind: entity.KindTodoAdded, ActorId: "A"})
	assert.True(t, xerr.Is(err, xerr.BadRequest))

	_, err = svc.NotifyGroupEvent(context.Background(), compose.Event{Kind: "todo:unknown", ActorId: "A", GroupId: "G"})
	assert.True(t, xerr.Is(err, xerr.BadRequest))

	_, err = svc.NotifyDirectEvent(context.Background(), compose.Event{Kind: entity.KindGroupInvited, ActorId: "A"})
	assert.True(t, xerr.Is(err, xerr.BadRequest))

	assert.Zero(t, dir.calls)
	assert.Empty(t, ledger.recipients())
	assert.Empty(t, pusher.user)
	assert.Empty(t, pusher.topics)
}

func TestNotifyGroupEvent_GroupMissing(t *testing.T) {
	svc := NewDeliveryService(&fakeLedger{}, &fakeDirectory{err: gorm.ErrRecordNotFound}, &fakePusher{}, nil, 2)

	_, err := svc.NotifyGroupEvent(context.Background(), compose.Event{Kind: entity.KindTodoAdded, ActorId: "A", GroupId: "G"})

	assert.True(t, xerr.Is(err, xerr.NotFound))
}

func TestNotifyDirectEvent_OfflineRecipientStillPersisted(t *testing.T) {
	ledger := &fakeLedger{}
	pusher := &fakePusher{}
	activity := &fakeActivity{err: errors.New("broker down")}
	svc := NewDeliveryService(ledger, &fakeDirectory{}, pusher, activity, 2)

	report, err := svc.NotifyDirectEvent(context.Background(), compose.Event{
		Kind:         entity.KindGroupInvited,
		ActorId:      "Y",
		ActorName:    "Yan",
		GroupId:      "G",
		GroupName:    "Team",
		TargetUserId: "X",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, ledger.recipients())
	assert.Equal(t, "Yan invited you to join Team", ledger.created[0].Message)
	assert.Equal(t, 1, report.Persisted)
	assert.Zero(t, report.Pushed)
	assert.Empty(t, pusher.topics)
	assert.Len(t, activity.acts, 1)
}

func TestNotifyDirectEvent_SelfTargetIsNoop(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewDeliveryService(ledger, &fakeDirectory{}, &fakePusher{}, nil, 2)

	report, err := svc.NotifyDirectEvent(context.Background(), compose.Event{Kind: entity.KindGroupRemoved, ActorId: "X", TargetUserId: "X"})

	require.NoError(t, err)
	assert.Zero(t, report.Recipients)
	assert.Empty(t, ledger.recipients())
}

func TestNotifyGroupEvent_NilPusher(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewDeliveryService(ledger, &fakeDirectory{audience: groupG()}, nil, nil, 2)

	report, err := svc.NotifyGroupEvent(context.Background(), compose.Event{Kind: entity.KindTodoDeleted, ActorId: "A", GroupId: "G"})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Persisted)
	assert.False(t, report.TopicPushed)
}

func TestNotifyGroupEvent_SlowRecipientDoesNotDelayOthers(t *testing.T) {
	release := make(chan struct{})
	ledger := &fakeLedger{blockFor: map[string]chan struct{}{"A": release}}
	pusher := &fakePusher{online: map[string]bool{"A": true, "B": true}, pushed: make(chan string, 4)}
	dir := &fakeDirectory{audience: &entity.GroupAudience{
		GroupId: "G",
		Members: []entity.Member{
			{UserId: "X", InvitationStatus: entity.InvitationAccepted},
			{UserId: "A", InvitationStatus: entity.InvitationAccepted},
			{UserId: "B", InvitationStatus: entity.InvitationAccepted},
		},
	}}
	svc := NewDeliveryService(ledger, dir, pusher, nil, 4)

	type result struct {
		report *DeliveryReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		r, err := svc.NotifyGroupEvent(context.Background(), compose.Event{Kind: entity.KindTodoAdded, ActorId: "X", GroupId: "G"})
		done <- result{r, err}
	}()

	select {
	case got := <-pusher.pushed:
		assert.Equal(t, "B", got)
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("push to B waited for A's ledger write")
	}
	assert.Equal(t, []string{"B"}, ledger.recipients())

	select {
	case <-done:
		t.Fatal("delivery finished while A's ledger write is still blocked")
	default:
	}

	close(release)
	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, 2, r.report.Persisted)
		assert.Equal(t, 2, r.report.Pushed)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not finish after A was released")
	}
	assert.ElementsMatch(t, []string{"A", "B"}, ledger.recipients())
}
