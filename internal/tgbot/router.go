// Package tgbot turns prefixed chat messages into fed and gban actions.
package tgbot

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/Geergon/fedstat-userbot/internal/actionlog"
	"github.com/Geergon/fedstat-userbot/internal/config"
	"github.com/Geergon/fedstat-userbot/internal/database"
	"github.com/Geergon/fedstat-userbot/internal/fanout"
	"github.com/Geergon/fedstat-userbot/internal/gban"
	"github.com/Geergon/fedstat-userbot/internal/telegram"
)

const commandTimeout = 5 * time.Minute

// Chat is what command handlers need from the account.
type Chat interface {
	Reply(ctx context.Context, chat int64, replyTo int, html string) (int, error)
	Edit(ctx context.Context, chat int64, id int, html string) error
	SendHTML(ctx context.Context, chat int64, html string) (int, error)
	SendFile(ctx context.Context, chat int64, path, caption string) error
	ForwardProof(ctx context.Context, from int64, id int, to int64) (int, error)
	ResolveUser(ctx context.Context, token string) (telegram.User, error)
	RepliedMessage(ctx context.Context, chat int64, id int) (telegram.Replied, error)
}

// Command is one prefixed message.
type Command struct {
	Chat      int64
	ChatTitle string
	MsgID     int
	Sender    int64
	// Out is set for messages the account sent itself; those are edited in
	// place instead of replied to.
	Out     bool
	Name    string
	Args    string
	ReplyTo int
}

func (c Command) Fields() []string {
	return strings.Fields(c.Args)
}

// ParseCommand splits ".fban 42 spam" into "fban" and "42 spam".
func ParseCommand(prefix, text string) (name, args string, ok bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	body := strings.TrimPrefix(text, prefix)
	name, args, _ = strings.Cut(body, " ")
	if i := strings.IndexByte(name, '\n'); i >= 0 {
		name, args = name[:i], body[i+1:]
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(args), true
}

type Deps struct {
	Config     *config.Config
	Store      *database.Store
	Chat       Chat
	Aggregator *fanout.Aggregator
	Sweeper    *gban.Sweeper
	Groups     gban.Chats
	Notifier   actionlog.Notifier
	// Self is the id of the logged in account.
	Self int64
	// Context bounds every command started by OnMessage.
	Context context.Context
	Log     *zap.Logger
}

type handler func(ctx context.Context, cmd Command, p *progress) error

type route struct {
	run       handler
	ownerOnly bool
}

type Router struct {
	Deps
	routes map[string]route
	log    *zap.Logger
}

func NewRouter(d Deps) *Router {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Notifier == nil {
		d.Notifier = actionlog.Nop{}
	}
	if d.Context == nil {
		d.Context = context.Background()
	}
	if d.Sweeper == nil {
		d.Sweeper = gban.NewSweeper(d.Log)
	}
	r := &Router{Deps: d, log: d.Log.Named("tgbot")}
	r.register()
	return r
}

func (r *Router) register() {
	fstat := route{run: r.fedStat}
	whatis := route{run: r.whatis}
	fpromote := route{run: r.fedAdmin("fpromote"), ownerOnly: true}
	fdemote := route{run: r.fedAdmin("fdemote"), ownerOnly: true}

	r.routes = map[string]route{
		"fstat":   fstat,
		"fedstat": fstat,

		"fban":   {run: r.fedBan(fban)},
		"fbanp":  {run: r.fedBan(fban.withProof())},
		"unfban": {run: r.fedBan(unfban)},

		"gban":   {run: r.globalBan(gbanAll)},
		"gbanp":  {run: r.globalBan(gbanAll.withProof())},
		"ungban": {run: r.globalBan(ungbanAll)},

		"aban":   {run: r.allBan(aban)},
		"abanp":  {run: r.allBan(aban.withProof())},
		"unaban": {run: r.allBan(unaban)},

		"addf":  {run: r.addPeer(r.Store.Feds, "fed list")},
		"delf":  {run: r.delPeer(r.Store.Feds, "fed list")},
		"listf": {run: r.listPeers(r.Store.Feds, "Feds")},
		"addg":  {run: r.addPeer(r.Store.GbanChats, "gban chat list")},
		"delg":  {run: r.delPeer(r.Store.GbanChats, "gban chat list")},
		"listg": {run: r.listPeers(r.Store.GbanChats, "Gban chats")},

		"addsudo":  {run: r.addSudo, ownerOnly: true},
		"delsudo":  {run: r.delSudo, ownerOnly: true},
		"listsudo": {run: r.listSudo},

		"fpromote":   fpromote,
		"fedpromote": fpromote,
		"fdemote":    fdemote,
		"feddemote":  fdemote,

		"whatis": whatis,
		"xiaomi": whatis,

		"logs": {run: r.sendLogs},
		"fset": {run: r.settings, ownerOnly: true},
	}
}

// Known reports whether name is a registered command.
func (r *Router) Known(name string) bool {
	_, ok := r.routes[name]
	return ok
}

// Handle runs one command. Failures are shown in the chat; the returned
// error is only for the caller's logs.
func (r *Router) Handle(ctx context.Context, cmd Command) error {
	rt, ok := r.routes[cmd.Name]
	if !ok {
		return nil
	}

	allowed, err := r.allowed(ctx, cmd.Sender, rt.ownerOnly)
	if err != nil {
		return errors.Wrap(err, "check access")
	}
	if !allowed {
		r.log.Info("Access denied",
			zap.String("command", cmd.Name),
			zap.Int64("user", cmd.Sender),
			zap.Int64("chat", cmd.Chat),
		)
		return nil
	}

	p, err := r.begin(ctx, cmd, "❯")
	if err != nil {
		return errors.Wrap(err, "start progress")
	}

	if err := rt.run(ctx, cmd, p); err != nil {
		r.log.Warn("Command failed",
			zap.String("command", cmd.Name),
			zap.Int64("chat", cmd.Chat),
			zap.Error(err),
		)
		if perr := p.set(ctx, errorText(err)); perr != nil {
			r.log.Warn("Report failure", zap.Error(perr))
		}
		return err
	}
	return nil
}

// progress is the message a command keeps editing while it runs.
type progress struct {
	chat   Chat
	chatID int64
	id     int
}

func (r *Router) begin(ctx context.Context, cmd Command, text string) (*progress, error) {
	p := &progress{chat: r.Chat, chatID: cmd.Chat}
	if cmd.Out {
		p.id = cmd.MsgID
		return p, r.Chat.Edit(ctx, cmd.Chat, cmd.MsgID, text)
	}
	id, err := r.Chat.Reply(ctx, cmd.Chat, cmd.MsgID, text)
	if err != nil {
		return nil, err
	}
	p.id = id
	return p, nil
}

func (p *progress) set(ctx context.Context, text string) error {
	return p.chat.Edit(ctx, p.chatID, p.id, text)
}

// step updates the progress marker; a failed cosmetic edit is not fatal.
func (p *progress) step(ctx context.Context, text string) {
	_ = p.set(ctx, text)
}
