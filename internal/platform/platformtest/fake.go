// Package platformtest provides an in-memory platform.Client double for
// exercising the ticket engine without a chat gateway.
package platformtest

import (
	"context"
	"sync"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
	"github.com/dlfdkwl/discord-tiket/internal/platform"
)

// Channel captures the state the fake tracks per channel.
type Channel struct {
	ID       uint64
	ParentID uint64
	Name     string
	Overlay  []domain.Grant
	Grants   map[uint64]domain.AccessLevel
	Deleted  bool
}

// Fake implements platform.Client against in-memory state.
type Fake struct {
	mu     sync.Mutex
	nextID uint64

	Channels  map[uint64]*Channel
	Messages  map[uint64][]platform.Outbound
	Histories map[uint64][]platform.Message

	HistoryCalls int

	CreateErr  error
	RenameErr  error
	DeleteErr  error
	GrantErr   error
	HistoryErr error
	SendErr    error
}

// New returns an empty fake. Preload Histories before closing tickets.
func New() *Fake {
	return &Fake{
		nextID:    1000,
		Channels:  make(map[uint64]*Channel),
		Messages:  make(map[uint64][]platform.Outbound),
		Histories: make(map[uint64][]platform.Message),
	}
}

func (f *Fake) CreateChannel(ctx context.Context, parentID uint64, name string, overlay []domain.Grant) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return 0, f.CreateErr
	}
	f.nextID++
	id := f.nextID
	grants := make(map[uint64]domain.AccessLevel)
	for _, grant := range overlay {
		if grant.Kind == domain.PrincipalUser {
			grants[grant.ID] = grant.Level
		}
	}
	f.Channels[id] = &Channel{
		ID:       id,
		ParentID: parentID,
		Name:     name,
		Overlay:  append([]domain.Grant(nil), overlay...),
		Grants:   grants,
	}
	return id, nil
}

func (f *Fake) RenameChannel(ctx context.Context, channelID uint64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RenameErr != nil {
		return f.RenameErr
	}
	if ch, ok := f.Channels[channelID]; ok && !ch.Deleted {
		ch.Name = name
	}
	return nil
}

func (f *Fake) DeleteChannel(ctx context.Context, channelID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if ch, ok := f.Channels[channelID]; ok {
		ch.Deleted = true
	}
	return nil
}

func (f *Fake) GrantAccess(ctx context.Context, channelID, userID uint64, level domain.AccessLevel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GrantErr != nil {
		return f.GrantErr
	}
	ch, ok := f.Channels[channelID]
	if !ok {
		ch = &Channel{ID: channelID, Grants: make(map[uint64]domain.AccessLevel)}
		f.Channels[channelID] = ch
	}
	if ch.Grants == nil {
		ch.Grants = make(map[uint64]domain.AccessLevel)
	}
	ch.Grants[userID] = level
	return nil
}

func (f *Fake) History(ctx context.Context, channelID uint64) ([]platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HistoryCalls++
	if f.HistoryErr != nil {
		return nil, f.HistoryErr
	}
	return append([]platform.Message(nil), f.Histories[channelID]...), nil
}

func (f *Fake) SendMessage(ctx context.Context, channelID uint64, msg platform.Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.Messages[channelID] = append(f.Messages[channelID], msg)
	return nil
}

// Channel returns a snapshot of the tracked channel state.
func (f *Fake) Channel(id uint64) (Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.Channels[id]
	if !ok {
		return Channel{}, false
	}
	out := *ch
	out.Grants = make(map[uint64]domain.AccessLevel, len(ch.Grants))
	for k, v := range ch.Grants {
		out.Grants[k] = v
	}
	return out, true
}

// SentTo returns messages delivered to a channel.
func (f *Fake) SentTo(channelID uint64) []platform.Outbound {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Outbound(nil), f.Messages[channelID]...)
}
