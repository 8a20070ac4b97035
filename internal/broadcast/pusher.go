package broadcast

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"drawphone/internal/game"

	pusher "github.com/pusher/pusher-http-go/v5"
)

const pusherChannelPrefix = "presence-game-"

type pusherClient interface {
	Trigger(channel string, eventName string, data interface{}) error
	AuthorizePresenceChannel(params []byte, member pusher.MemberData) ([]byte, error)
	Webhook(header http.Header, body []byte) (*pusher.Webhook, error)
}

// PusherGateway publishes events to the hosted presence channel
// "presence-game-<CODE>", for clients that subscribe through the Pusher JS SDK
// instead of /ws. Pusher tracks membership; this server signs subscriptions
// and consumes member webhooks.
type PusherGateway struct {
	client pusherClient
}

func NewPusherGateway(appID, key, secret, cluster string) *PusherGateway {
	return &PusherGateway{client: &pusher.Client{
		AppID:   appID,
		Key:     key,
		Secret:  secret,
		Cluster: cluster,
		Secure:  true,
	}}
}

func PusherChannel(code string) string {
	return pusherChannelPrefix + code
}

// CodeFromChannel extracts the room code from a game presence channel name.
func CodeFromChannel(channel string) (string, bool) {
	code, ok := strings.CutPrefix(channel, pusherChannelPrefix)
	if !ok || code == "" {
		return "", false
	}
	return game.NormalizeCode(code), true
}

func (g *PusherGateway) Publish(_ context.Context, code string, ev game.Event) error {
	return g.client.Trigger(PusherChannel(code), string(ev.Kind()), ev)
}

// AuthorizePlayer signs a presence subscription for player. params is the
// form body Pusher's client library posts (socket_id, channel_name).
func (g *PusherGateway) AuthorizePlayer(params []byte, player *game.Player) ([]byte, error) {
	return g.client.AuthorizePresenceChannel(params, pusher.MemberData{
		UserID:   strconv.FormatUint(uint64(player.ID), 10),
		UserInfo: map[string]string{"nickname": player.Nickname},
	})
}

// MemberChange is a player entering or leaving a game's presence channel.
type MemberChange struct {
	Code      string
	PlayerID  uint
	Connected bool
}

// MemberChanges verifies a Pusher webhook and returns its presence events for
// game channels. Other events are skipped.
func (g *PusherGateway) MemberChanges(header http.Header, body []byte) ([]MemberChange, error) {
	hook, err := g.client.Webhook(header, body)
	if err != nil {
		return nil, err
	}
	var changes []MemberChange
	for _, ev := range hook.Events {
		var connected bool
		switch ev.Name {
		case "member_added":
			connected = true
		case "member_removed":
			connected = false
		default:
			continue
		}
		code, ok := CodeFromChannel(ev.Channel)
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(ev.UserID, 10, 64)
		if err != nil {
			continue
		}
		changes = append(changes, MemberChange{Code: code, PlayerID: uint(id), Connected: connected})
	}
	return changes, nil
}
