package telegram

import (
	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/Geergon/fedstat-userbot/internal/config"
)

// Connect logs the user account in, asking for the code on the terminal on
// first start. The session is kept in an sqlite file.
func Connect(cfg *config.Config, log *zap.Logger) (*gotgproto.Client, error) {
	if err := cfg.Telegram.Validate(); err != nil {
		return nil, err
	}
	client, err := gotgproto.NewClient(
		cfg.Telegram.AppID,
		cfg.Telegram.APIHash,
		gotgproto.ClientTypePhone(cfg.Telegram.Phone),
		&gotgproto.ClientOpts{
			Session:          sessionMaker.SqlSession(sqlite.Open(cfg.SessionPath())),
			Logger:           log.Named("gotgproto"),
			DisableCopyright: true,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "start client")
	}
	return client, nil
}
