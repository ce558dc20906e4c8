// Package notification merges stored notifications with the user's tasks
// that are due soon into one feed with an unread count.
package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"pulseflow/internal/apperr"
	"pulseflow/internal/model"
	"pulseflow/internal/realtime"
	"pulseflow/internal/session"
)

type Repository interface {
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type DueTaskRepository interface {
	ListDueSoon(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.DueTask, error)
}

// InviteResponder answers team invites on behalf of the user.
type InviteResponder interface {
	AcceptTeamInvite(ctx context.Context, sess session.Session, memberID uuid.UUID) (*model.TeamMember, error)
	DeclineTeamInvite(ctx context.Context, sess session.Session, memberID uuid.UUID) (*model.TeamMember, error)
}

const (
	DefaultLimit  = 50
	DefaultWindow = 24 * time.Hour
)

type Options struct {
	Limit  int
	Window time.Duration
	Now    func() time.Time
	// RetryDelay is the pause before Watch resubscribes.
	RetryDelay time.Duration
}

// Aggregator is the notification feed of one user. Notifications change in
// memory as they are acted on; only Refresh refetches.
type Aggregator struct {
	sess    session.Session
	notes   Repository
	due     DueTaskRepository
	invites InviteResponder
	limit   int
	window  time.Duration
	now     func() time.Time
	retry   time.Duration

	mu            sync.Mutex
	notifications []model.Notification
	dueSoon       []model.DueTask
}

func NewAggregator(sess session.Session, notes Repository, due DueTaskRepository, invites InviteResponder, opts Options) *Aggregator {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		sess:    sess,
		notes:   notes,
		due:     due,
		invites: invites,
		limit:   opts.Limit,
		window:  opts.Window,
		now:     opts.Now,
		retry:   opts.RetryDelay,
	}
}

// Feed is what the notification dropdown renders.
type Feed struct {
	Notifications []model.Notification `json:"notifications"`
	DueSoon       []model.DueTask      `json:"due_soon"`
	UnreadCount   int                  `json:"unread_count"`
}

// LoadNotifications fetches the newest notifications, newest first.
func (a *Aggregator) LoadNotifications(ctx context.Context) error {
	if err := a.sess.Require(); err != nil {
		return err
	}
	notes, err := a.notes.ListRecent(ctx, a.sess.UserID, a.limit)
	if err != nil {
		return apperr.Remote("failed to load notifications", err)
	}
	a.mu.Lock()
	a.notifications = notes
	a.mu.Unlock()
	return nil
}

// LoadTasksDueSoon fetches the user's tasks due within the window from now,
// soonest first.
func (a *Aggregator) LoadTasksDueSoon(ctx context.Context) error {
	if err := a.sess.Require(); err != nil {
		return err
	}
	from := a.now()
	tasks, err := a.due.ListDueSoon(ctx, a.sess.UserID, from, from.Add(a.window))
	if err != nil {
		return apperr.Remote("failed to load tasks due soon", err)
	}
	a.mu.Lock()
	a.dueSoon = tasks
	a.mu.Unlock()
	return nil
}

// Refresh runs both loads. A failure of one does not skip the other.
func (a *Aggregator) Refresh(ctx context.Context) error {
	var merr *multierror.Error
	merr = multierror.Append(merr, a.LoadNotifications(ctx))
	merr = multierror.Append(merr, a.LoadTasksDueSoon(ctx))
	return merr.ErrorOrNil()
}

// UnreadCount is unread notifications plus every task due soon. Due tasks
// have no read state and always count.
func (a *Aggregator) UnreadCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unreadLocked()
}

func (a *Aggregator) unreadLocked() int {
	n := len(a.dueSoon)
	for _, note := range a.notifications {
		if !note.Read {
			n++
		}
	}
	return n
}

func (a *Aggregator) Feed() Feed {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := Feed{
		Notifications: append([]model.Notification{}, a.notifications...),
		DueSoon:       append([]model.DueTask{}, a.dueSoon...),
	}
	f.UnreadCount = a.unreadLocked()
	return f
}

func (a *Aggregator) find(id uuid.UUID) (model.Notification, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, n := range a.notifications {
		if n.ID == id {
			return n, true
		}
	}
	return model.Notification{}, false
}

// MarkAsRead persists the read flag and updates the feed in place.
func (a *Aggregator) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	if err := a.sess.Require(); err != nil {
		return err
	}
	if _, ok := a.find(id); !ok {
		return apperr.NotFoundf("notification not found")
	}
	if err := a.notes.MarkRead(ctx, id); err != nil {
		return apperr.Remote("failed to mark notification as read", err)
	}
	a.mu.Lock()
	for i := range a.notifications {
		if a.notifications[i].ID == id {
			a.notifications[i].Read = true
		}
	}
	a.mu.Unlock()
	return nil
}

func (a *Aggregator) MarkAllAsRead(ctx context.Context) error {
	if err := a.sess.Require(); err != nil {
		return err
	}
	if err := a.notes.MarkAllRead(ctx, a.sess.UserID); err != nil {
		return apperr.Remote("failed to mark notifications as read", err)
	}
	a.mu.Lock()
	for i := range a.notifications {
		a.notifications[i].Read = true
	}
	a.mu.Unlock()
	return nil
}

func (a *Aggregator) Delete(ctx context.Context, id uuid.UUID) error {
	if err := a.sess.Require(); err != nil {
		return err
	}
	if _, ok := a.find(id); !ok {
		return apperr.NotFoundf("notification not found")
	}
	if err := a.notes.Delete(ctx, id); err != nil {
		return apperr.Remote("failed to delete notification", err)
	}
	a.remove(id)
	return nil
}

func (a *Aggregator) remove(id uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.notifications[:0]
	for _, n := range a.notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	a.notifications = kept
}

// RespondToInvite accepts or declines the invite a team_invite notification
// points at, then deletes the notification whichever way it went.
func (a *Aggregator) RespondToInvite(ctx context.Context, id uuid.UUID, accept bool) (*model.TeamMember, error) {
	if err := a.sess.Require(); err != nil {
		return nil, err
	}
	note, ok := a.find(id)
	if !ok {
		return nil, apperr.NotFoundf("notification not found")
	}
	if note.Type != model.NotificationTeamInvite {
		return nil, apperr.Validationf("notification is not a team invite")
	}
	memberID, ok := note.MemberID()
	if !ok {
		return nil, apperr.Validationf("invite notification has no member id")
	}

	var (
		member *model.TeamMember
		err    error
	)
	if accept {
		member, err = a.invites.AcceptTeamInvite(ctx, a.sess, memberID)
	} else {
		member, err = a.invites.DeclineTeamInvite(ctx, a.sess, memberID)
	}
	if err != nil {
		return nil, err
	}

	if err := a.Delete(ctx, id); err != nil {
		log.WithError(err).WithField("notification_id", id).Warn("invite answered but notification not deleted")
	}
	return member, nil
}

// Watch applies notification events for the user to the feed and reloads
// the due-soon list when one of the user's tasks changes. Duplicate events
// are harmless. A dropped feed or a failed Subscribe is retried; Watch
// returns when ctx ends.
func (a *Aggregator) Watch(ctx context.Context, sub realtime.Subscriber) error {
	if err := a.sess.Require(); err != nil {
		return err
	}
	user := a.sess.UserID.String()
	topics := func() []realtime.Topic {
		return []realtime.Topic{
			{Table: "notifications", Column: "user_id", Value: user},
			{Table: "tasks", Column: "created_by", Value: user},
		}
	}
	realtime.Follow(ctx, sub, a.retry, log.WithField("user_id", a.sess.UserID), topics,
		func(ctx context.Context, subscription *realtime.Subscription) error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case ev, ok := <-subscription.Events():
					if !ok {
						return realtime.ErrFeedClosed
					}
					a.Apply(ctx, ev)
				}
			}
		})
	return nil
}

// Apply folds one change event into the feed.
func (a *Aggregator) Apply(ctx context.Context, ev realtime.Event) {
	if ev.Table == "tasks" {
		if err := a.LoadTasksDueSoon(ctx); err != nil {
			log.WithError(err).Warn("failed to reload tasks due soon")
		}
		return
	}

	var note model.Notification
	if err := ev.Decode(&note); err != nil {
		log.WithError(err).Warn("unable to decode notification event")
		return
	}
	if ev.Type == realtime.Delete {
		a.remove(note.ID)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.notifications {
		if a.notifications[i].ID == note.ID {
			a.notifications[i] = note
			return
		}
	}
	a.notifications = append(a.notifications, note)
	sort.SliceStable(a.notifications, func(i, j int) bool {
		return a.notifications[i].CreatedAt.After(a.notifications[j].CreatedAt)
	})
	if len(a.notifications) > a.limit {
		a.notifications = a.notifications[:a.limit]
	}
}
