package database

import (
	"context"

	"github.com/go-faster/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Add appends a peer, or renames it when it is already listed. created is
// false for a rename.
func (l *PeerList) Add(ctx context.Context, id int64, name string) (created bool, err error) {
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing peerRow
		err := tx.Table(l.table).Where("id = ?", id).Take(&existing).Error
		switch {
		case err == nil:
			return tx.Table(l.table).Where("id = ?", id).Update("name", name).Error
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		var last int64
		if err := tx.Table(l.table).Select("COALESCE(MAX(position), 0)").Scan(&last).Error; err != nil {
			return err
		}
		created = true
		return tx.Table(l.table).Create(&peerRow{ID: id, Name: name, Position: last + 1}).Error
	})
	if err != nil {
		return false, errors.Wrapf(err, "add %d to %s", id, l.table)
	}
	return created, nil
}

func AddSudo(ctx context.Context, s *Store, userID int64, username string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username"}),
	}).Create(&SudoUser{UserID: userID, Username: username}).Error
	if err != nil {
		return errors.Wrap(err, "add sudo user")
	}
	return nil
}
