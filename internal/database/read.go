package database

import (
	"context"

	"github.com/Geergon/fedstat-userbot/internal/fanout"
	"github.com/go-faster/errors"
	"gorm.io/gorm"
)

// Peers returns the list in the order entries were added.
func (l *PeerList) Peers(ctx context.Context) ([]fanout.PeerEndpoint, error) {
	var rows []peerRow
	if err := l.tx(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "read %s", l.table)
	}
	peers := make([]fanout.PeerEndpoint, 0, len(rows))
	for _, r := range rows {
		peers = append(peers, fanout.PeerEndpoint{ID: r.ID, Name: r.Name})
	}
	return peers, nil
}

func (l *PeerList) Get(ctx context.Context, id int64) (fanout.PeerEndpoint, error) {
	var row peerRow
	err := l.tx(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fanout.PeerEndpoint{}, errors.Wrapf(ErrPeerNotFound, "%s %d", l.table, id)
	}
	if err != nil {
		return fanout.PeerEndpoint{}, errors.Wrapf(err, "read %s", l.table)
	}
	return fanout.PeerEndpoint{ID: row.ID, Name: row.Name}, nil
}

func ListSudo(ctx context.Context, s *Store) ([]SudoUser, error) {
	var users []SudoUser
	if err := s.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "read sudo list")
	}
	return users, nil
}
