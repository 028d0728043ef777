// Package platform defines the chat-platform collaborator consumed by the
// ticket engine: channel management, permission grants, message history and
// delivery. The engine never talks to the chat platform directly; everything
// goes through this interface so the lifecycle stays testable.
package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
)

// Message is one entry of a channel's history.
type Message struct {
	Timestamp  time.Time `json:"timestamp"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
}

// Embed is a rich notification block rendered by the chat platform.
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Footer      string       `json:"footer,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// EmbedField is a labeled value inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Outbound is a message sent into a channel, optionally carrying an embed
// and a reference to an archived attachment.
type Outbound struct {
	Content       string `json:"content,omitempty"`
	Embed         *Embed `json:"embed,omitempty"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
}

// Client is the chat-platform collaborator surface.
type Client interface {
	// CreateChannel creates a channel under parentID with the given access
	// overlay applied and returns the new channel's ID.
	CreateChannel(ctx context.Context, parentID uint64, name string, overlay []domain.Grant) (uint64, error)
	RenameChannel(ctx context.Context, channelID uint64, name string) error
	DeleteChannel(ctx context.Context, channelID uint64) error
	// GrantAccess adds or updates a single user grant on a channel.
	// Re-granting an existing level is a no-op success.
	GrantAccess(ctx context.Context, channelID, userID uint64, level domain.AccessLevel) error
	// History returns the full ordered message log, oldest first.
	History(ctx context.Context, channelID uint64) ([]Message, error)
	SendMessage(ctx context.Context, channelID uint64, msg Outbound) error
}

// MentionUser renders a user mention token.
func MentionUser(id uint64) string {
	return fmt.Sprintf("<@%d>", id)
}

// MentionRole renders a role mention token.
func MentionRole(id uint64) string {
	return fmt.Sprintf("<@&%d>", id)
}

// MentionChannel renders a channel mention token.
func MentionChannel(id uint64) string {
	return fmt.Sprintf("<#%d>", id)
}
