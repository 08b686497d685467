// Package orderlog persists a durable audit trail of successful
// AddOrder calls, adapted from the teacher's domain/pgdb Postgres
// connection and query pattern.
package orderlog

import (
	"fmt"
	"time"

	"github.com/BullionBear/marketfeed/internal/rest"
	"github.com/BullionBear/marketfeed/internal/venue"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Entry is one recorded order placement.
type Entry struct {
	ID         uint      `gorm:"primaryKey"`
	Exchange   string    `gorm:"index"`
	Pair       string    `gorm:"index"`
	OrderID    string    `gorm:"index"`
	Type       string
	Amount     string
	Price      string
	RecordedAt time.Time `gorm:"index"`
}

func (Entry) TableName() string {
	return "order_log"
}

type Store struct {
	db *gorm.DB
}

func Open(host string, port int, user, password, dbName, sslMode, timeZone string) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		host, port, user, password, dbName, sslMode, timeZone)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Record writes one successful order placement to the audit log.
func (s *Store) Record(exchange venue.Exchange, info rest.OrderInfo) error {
	entry := newEntry(exchange, info)
	return s.db.Create(&entry).Error
}

// newEntry builds the audit row Record writes for one order placement.
func newEntry(exchange venue.Exchange, info rest.OrderInfo) Entry {
	return Entry{
		Exchange:   string(exchange),
		Pair:       string(info.Pair),
		OrderID:    info.OrderID,
		Type:       string(info.Type),
		Amount:     info.Amount.String(),
		Price:      info.Price.String(),
		RecordedAt: time.Now(),
	}
}

// RecentByExchange returns the most recent n entries for an exchange,
// newest first.
func (s *Store) RecentByExchange(exchange venue.Exchange, n int) ([]Entry, error) {
	var entries []Entry
	result := s.db.Where("exchange = ?", string(exchange)).
		Order("recorded_at DESC").
		Limit(n).
		Find(&entries)
	return entries, result.Error
}
