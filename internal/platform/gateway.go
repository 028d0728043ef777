package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dlfdkwl/discord-tiket/internal/config"
	"github.com/dlfdkwl/discord-tiket/internal/domain"
)

// Gateway talks to the chat-platform gateway over HTTP. The gateway owns the
// actual platform connection; this client only issues requests and surfaces
// failures to the engine.
type Gateway struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewGateway builds a client from configuration.
func NewGateway(cfg config.GatewayConfig) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout()},
	}
}

type createChannelRequest struct {
	ParentID uint64        `json:"parent_id"`
	Name     string        `json:"name"`
	Overlay  []grantRecord `json:"overlay"`
}

type grantRecord struct {
	Kind  domain.PrincipalKind `json:"kind"`
	ID    uint64               `json:"id"`
	Level domain.AccessLevel   `json:"level"`
}

type createChannelResponse struct {
	ChannelID uint64 `json:"channel_id"`
}

func (g *Gateway) CreateChannel(ctx context.Context, parentID uint64, name string, overlay []domain.Grant) (uint64, error) {
	grants := make([]grantRecord, 0, len(overlay))
	for _, grant := range overlay {
		grants = append(grants, grantRecord{Kind: grant.Kind, ID: grant.ID, Level: grant.Level})
	}
	var resp createChannelResponse
	err := g.do(ctx, http.MethodPost, "/channels", createChannelRequest{
		ParentID: parentID,
		Name:     name,
		Overlay:  grants,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ChannelID, nil
}

func (g *Gateway) RenameChannel(ctx context.Context, channelID uint64, name string) error {
	return g.do(ctx, http.MethodPatch, fmt.Sprintf("/channels/%d", channelID), map[string]string{"name": name}, nil)
}

func (g *Gateway) DeleteChannel(ctx context.Context, channelID uint64) error {
	return g.do(ctx, http.MethodDelete, fmt.Sprintf("/channels/%d", channelID), nil, nil)
}

func (g *Gateway) GrantAccess(ctx context.Context, channelID, userID uint64, level domain.AccessLevel) error {
	return g.do(ctx, http.MethodPut, fmt.Sprintf("/channels/%d/grants/%d", channelID, userID), map[string]any{
		"level": level,
	}, nil)
}

func (g *Gateway) History(ctx context.Context, channelID uint64) ([]Message, error) {
	var messages []Message
	if err := g.do(ctx, http.MethodGet, fmt.Sprintf("/channels/%d/messages", channelID), nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (g *Gateway) SendMessage(ctx context.Context, channelID uint64, msg Outbound) error {
	return g.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%d/messages", channelID), msg, nil)
}

func (g *Gateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
