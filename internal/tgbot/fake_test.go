package tgbot

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"

	"github.com/Geergon/fedstat-userbot/internal/config"
	"github.com/Geergon/fedstat-userbot/internal/database"
	"github.com/Geergon/fedstat-userbot/internal/fanout"
	"github.com/Geergon/fedstat-userbot/internal/gban"
	"github.com/Geergon/fedstat-userbot/internal/telegram"
)

const (
	selfID   = 1000
	homeChat = 500
)

var baseTime = time.Unix(1_700_000_000, 0)

// fakeBots answers commands the way scripted peers would, through the
// registry, like the real update handler does.
type fakeBots struct {
	registry *fanout.Registry

	mu       sync.Mutex
	nextID   int
	replies  map[int64][]fanout.Message
	onClick  map[int64]fanout.Message
	sent     map[int64][]string
	forwards []fanout.Message
}

func newFakeBots(registry *fanout.Registry) *fakeBots {
	return &fakeBots{
		registry: registry,
		replies:  make(map[int64][]fanout.Message),
		onClick:  make(map[int64]fanout.Message),
		sent:     make(map[int64][]string),
	}
}

func (f *fakeBots) reply(peer int64, texts ...string) {
	for _, t := range texts {
		f.replies[peer] = append(f.replies[peer], fanout.Message{Text: t})
	}
}

func (f *fakeBots) Send(_ context.Context, peer int64, text string) (fanout.Message, error) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID * 100
	f.sent[peer] = append(f.sent[peer], text)
	replies := f.replies[peer]
	f.mu.Unlock()

	for i, m := range replies {
		m.ID = id + i + 1
		m.Peer = peer
		m.Time = baseTime
		f.registry.Publish(m)
	}
	return fanout.Message{ID: id, Peer: peer, Time: baseTime}, nil
}

func (f *fakeBots) Click(_ context.Context, msg fanout.Message, _ fanout.Button) error {
	f.mu.Lock()
	m, ok := f.onClick[msg.Peer]
	f.mu.Unlock()
	if ok {
		m.ID = msg.ID + 50
		m.Peer = msg.Peer
		m.Time = baseTime
		f.registry.Publish(m)
	}
	return nil
}

func (f *fakeBots) Forward(_ context.Context, msg fanout.Message, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwards = append(f.forwards, msg)
	return nil
}

func (f *fakeBots) sentTo(peer int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent[peer]...)
}

func (f *fakeBots) totalSent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		n += len(s)
	}
	return n
}

type fakeChat struct {
	mu      sync.Mutex
	nextID  int
	texts   map[int]string
	users   map[string]telegram.User
	replied map[int]telegram.Replied
	files   []string
	proofs  []int
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		nextID:  100,
		texts:   make(map[int]string),
		users:   make(map[string]telegram.User),
		replied: make(map[int]telegram.Replied),
	}
}

func (c *fakeChat) Reply(_ context.Context, _ int64, _ int, html string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.texts[c.nextID] = html
	return c.nextID, nil
}

func (c *fakeChat) Edit(_ context.Context, _ int64, id int, html string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts[id] = html
	return nil
}

func (c *fakeChat) SendHTML(ctx context.Context, chat int64, html string) (int, error) {
	return c.Reply(ctx, chat, 0, html)
}

func (c *fakeChat) SendFile(_ context.Context, _ int64, path, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, path)
	return nil
}

func (c *fakeChat) ForwardProof(_ context.Context, _ int64, id int, _ int64) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proofs = append(c.proofs, id)
	return 900 + id, nil
}

func (c *fakeChat) ResolveUser(_ context.Context, token string) (telegram.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.users[token]; ok {
		return u, nil
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return telegram.User{}, telegram.ErrUserNotFound
	}
	return telegram.User{ID: id, Name: token}, nil
}

func (c *fakeChat) RepliedMessage(_ context.Context, _ int64, id int) (telegram.Replied, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.replied[id]
	if !ok {
		return telegram.Replied{}, errors.New("message not found")
	}
	return m, nil
}

func (c *fakeChat) text(id int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.texts[id]
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *fakeNotifier) Notify(_ context.Context, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, html)
	return nil
}

type fakeGroups struct {
	groups     []gban.Chat
	restricted []int64
}

func (g *fakeGroups) Groups(context.Context) ([]gban.Chat, error) {
	return g.groups, nil
}

func (g *fakeGroups) Restrict(_ context.Context, chat gban.Chat, _ int64, _ gban.Action) error {
	g.restricted = append(g.restricted, chat.ID)
	return nil
}

type harness struct {
	router *Router
	chat   *fakeChat
	bots   *fakeBots
	store  *database.Store
	notes  *fakeNotifier
	groups *fakeGroups
	cfg    *config.Config
}

const testConfig = `
timeouts:
  fstat: 200ms
  fban: 200ms
  lookup: 500ms
fed_bots:
  - id: 11
    name: Alpha
  - id: 12
    name: Beta
`

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(testConfig+"log_file: "+filepath.Join(dir, "bot.log")+"\n"), 0o600))
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	store, err := database.InitDB(filepath.Join(dir, "userbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	registry := fanout.NewRegistry(nil)
	bots := newFakeBots(registry)
	sweeper := gban.NewSweeper(nil)
	sweeper.Interval = 0

	h := &harness{
		chat:   newFakeChat(),
		bots:   bots,
		store:  store,
		notes:  &fakeNotifier{},
		groups: &fakeGroups{},
		cfg:    cfg,
	}
	h.router = NewRouter(Deps{
		Config:     cfg,
		Store:      store,
		Chat:       h.chat,
		Aggregator: fanout.NewAggregator(bots, registry, nil, nil),
		Sweeper:    sweeper,
		Groups:     h.groups,
		Notifier:   h.notes,
		Self:       selfID,
	})
	return h
}

// own builds a command typed by the account itself, edited in place as
// message 1.
func own(name, args string) Command {
	return Command{Chat: homeChat, MsgID: 1, Sender: selfID, Out: true, Name: name, Args: args}
}
