package database

import (
	"context"

	"github.com/go-faster/errors"
)

func (l *PeerList) Remove(ctx context.Context, id int64) error {
	res := l.tx(ctx).Where("id = ?", id).Delete(&peerRow{})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "remove %d from %s", id, l.table)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrPeerNotFound, "%s %d", l.table, id)
	}
	return nil
}

func RemoveSudo(ctx context.Context, s *Store, userID int64) error {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&SudoUser{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "remove sudo user")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrPeerNotFound, "sudo user %d", userID)
	}
	return nil
}
