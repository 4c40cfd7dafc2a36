package discord

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/hintbot/internal/chat"
	"github.com/hintbot/internal/retry"
)

// Intents requested on the gateway connection.
const Intents = discordgo.IntentGuilds | discordgo.IntentGuildMessages | discordgo.IntentMessageContent

// Handler receives platform-neutral events.
type Handler interface {
	SetIdentity(userID string)
	HandleCommand(ctx context.Context, cmd chat.Command, resp chat.Responder)
	HandleThreadMessage(ctx context.Context, thread chat.Thread, msg chat.Message)
}

// stateSession serves channel lookups from the gateway state cache before
// falling back to REST.
type stateSession struct {
	*discordgo.Session
}

func (s stateSession) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if s.State != nil {
		if ch, err := s.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	return s.Session.Channel(channelID, options...)
}

// Gateway owns the websocket session and dispatches its events.
type Gateway struct {
	session  *discordgo.Session
	api      Session
	platform *Platform
	handler  Handler
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	connected atomic.Bool

	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

// NewSession creates an unopened bot session for token.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// API returns session as a Session whose channel lookups use the state cache.
func API(session *discordgo.Session) Session {
	return stateSession{Session: session}
}

// NewGateway wires handler to session's events. Call Open to connect.
func NewGateway(session *discordgo.Session, handler Handler, logger zerolog.Logger) *Gateway {
	g := newGateway(API(session), handler, logger)
	g.session = session

	session.AddHandler(g.onReady)
	session.AddHandler(g.onResumed)
	session.AddHandler(g.onDisconnect)
	session.AddHandler(g.onInteraction)
	session.AddHandler(g.onMessage)
	return g
}

func newGateway(api Session, handler Handler, logger zerolog.Logger) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		api:      api,
		platform: NewPlatform(api),
		handler:  handler,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Platform returns the REST adapter the gateway dispatches with.
func (g *Gateway) Platform() *Platform {
	return g.platform
}

// Open connects to the gateway, retrying transient failures.
func (g *Gateway) Open(ctx context.Context) error {
	result := retry.Do(ctx, retry.GatewayConfig(), "discord gateway connect", g.session.Open, g.logger)
	if !result.Success {
		return fmt.Errorf("connect to discord gateway after %d attempts: %w", result.Attempts, result.LastError)
	}
	return nil
}

// Connected reports whether the gateway session is currently up.
func (g *Gateway) Connected() bool {
	return g.connected.Load()
}

// Close stops accepting events, waits for in-flight handlers until ctx is
// done, then cancels whatever is left and closes the session.
func (g *Gateway) Close(ctx context.Context) error {
	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		g.logger.Warn().Msg("shutdown deadline reached with handlers still running")
	}
	g.cancel()
	g.connected.Store(false)

	if g.session == nil {
		return nil
	}
	return g.session.Close()
}

func (g *Gateway) track() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closing {
		return false
	}
	g.inflight.Add(1)
	return true
}

func (g *Gateway) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	g.handler.SetIdentity(r.User.ID)
	g.connected.Store(true)
	g.logger.Info().
		Str("user", r.User.Username).
		Int("guild_count", len(r.Guilds)).
		Msg("discord bot ready")
}

func (g *Gateway) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	g.connected.Store(true)
	g.logger.Info().Msg("gateway session resumed")
}

func (g *Gateway) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	g.connected.Store(false)
	g.logger.Warn().Msg("gateway disconnected")
}

func (g *Gateway) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if !g.track() {
		return
	}
	defer g.inflight.Done()

	ch, err := g.api.Channel(i.ChannelID, discordgo.WithContext(g.ctx))
	if err != nil {
		g.logger.Warn().Err(err).Str("channel_id", i.ChannelID).Msg("failed to resolve command channel")
	}
	g.handler.HandleCommand(g.ctx, toCommand(i.Interaction, ch), NewResponder(g.api, i.Interaction))
}

func (g *Gateway) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !g.track() {
		return
	}
	defer g.inflight.Done()

	thread, ok, err := g.platform.Thread(g.ctx, m.ChannelID)
	if err != nil {
		g.logger.Warn().Err(err).Str("channel_id", m.ChannelID).Msg("failed to resolve message channel")
		return
	}
	if !ok {
		return
	}
	g.handler.HandleThreadMessage(g.ctx, thread, toMessage(m.Message))
}
