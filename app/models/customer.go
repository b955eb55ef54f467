package models

import (
	"strings"
	"time"
)

// Customer mirrors the TMS customer master table. The table is owned by the
// upstream system; this service only ever reads it.
type Customer struct {
	CustomerID int        `gorm:"primaryKey;column:customer_id" json:"customer_id"`
	Name1      string     `gorm:"type:varchar(150)" json:"name1"`
	Name2      string     `gorm:"type:varchar(150)" json:"name2"`
	Email      string     `gorm:"type:varchar(200)" json:"email"`
	Phone      string     `gorm:"type:varchar(50);column:primary_phone" json:"primary_phone"`
	Address1   string     `gorm:"type:varchar(255)" json:"address1"`
	Address2   string     `gorm:"type:varchar(255)" json:"address2"`
	City       string     `gorm:"type:varchar(100)" json:"city"`
	State      string     `gorm:"type:varchar(50)" json:"state"`
	ZipCode    string     `gorm:"type:varchar(20);column:zip_code" json:"zip_code"`
	Country    string     `gorm:"type:varchar(50)" json:"country"`
	EntryDate  *time.Time `gorm:"type:timestamp;default:null" json:"entry_date,omitempty"`
	UpdateDate *time.Time `gorm:"type:timestamp;default:null" json:"update_date,omitempty"`
}

// FullName joins the master's split name columns.
func (c *Customer) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(c.Name1) + " " + strings.TrimSpace(c.Name2))
}
