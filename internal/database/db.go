package database

import (
	"context"
	"time"

	"github.com/Geergon/fedstat-userbot/internal/fanout"
	"github.com/go-faster/errors"
	"gorm.io/gorm"
)

var ErrPeerNotFound = errors.New("peer not found")

type peerRow struct {
	ID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Name      string
	Position  int64 `gorm:"index"`
	CreatedAt time.Time
}

type SudoUser struct {
	UserID    int64 `gorm:"primaryKey;autoIncrement:false"`
	Username  string
	CreatedAt time.Time
}

func (SudoUser) TableName() string { return "sudo_users" }

// PeerList is a durable, ordered set of chats a broadcast goes to.
type PeerList struct {
	db    *gorm.DB
	table string
}

var _ fanout.PeerSource = (*PeerList)(nil)

func (l *PeerList) Name() string { return l.table }

func (l *PeerList) tx(ctx context.Context) *gorm.DB {
	return l.db.WithContext(ctx).Table(l.table)
}

func IsSudo(ctx context.Context, s *Store, userID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&SudoUser{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check sudo list")
	}
	return count > 0, nil
}
