package database

import (
	"github.com/glebarez/sqlite"
	"github.com/go-faster/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	FedListTable   = "fed_list"
	GbanChatsTable = "gban_chat_list"
)

// Store holds the peer lists and the sudo list of the userbot.
type Store struct {
	db        *gorm.DB
	Feds      *PeerList
	GbanChats *PeerList
}

func InitDB(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	for _, table := range []string{FedListTable, GbanChatsTable} {
		if err := db.Table(table).AutoMigrate(&peerRow{}); err != nil {
			return nil, errors.Wrapf(err, "migrate %s", table)
		}
	}
	if err := db.AutoMigrate(&SudoUser{}); err != nil {
		return nil, errors.Wrap(err, "migrate sudo_users")
	}

	return &Store{
		db:        db,
		Feds:      &PeerList{db: db, table: FedListTable},
		GbanChats: &PeerList{db: db, table: GbanChatsTable},
	}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
