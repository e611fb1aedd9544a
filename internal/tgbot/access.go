package tgbot

import (
	"context"

	"github.com/Geergon/fedstat-userbot/internal/database"
)

func (r *Router) isOwner(user int64) bool {
	if user == 0 {
		return false
	}
	return user == r.Self || user == r.Config.Telegram.OwnerID
}

// allowed lets the owner run everything and sudo users everything that is
// not owner-only.
func (r *Router) allowed(ctx context.Context, user int64, ownerOnly bool) (bool, error) {
	if r.isOwner(user) {
		return true, nil
	}
	if ownerOnly {
		return false, nil
	}
	return database.IsSudo(ctx, r.Store, user)
}

// protected users cannot be banned through the bot.
func (r *Router) protected(ctx context.Context, user int64) (bool, error) {
	if r.isOwner(user) {
		return true, nil
	}
	return database.IsSudo(ctx, r.Store, user)
}
