package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are generated app-side so inserts behave identically on
// postgres and the sqlite used in tests; the column default remains for rows
// created by raw SQL.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (m *Account) BeforeCreate(*gorm.DB) error         { ensureID(&m.ID); return nil }
func (m *BankAccount) BeforeCreate(*gorm.DB) error     { ensureID(&m.ID); return nil }
func (m *BitcoinReceiver) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
func (m *Card) BeforeCreate(*gorm.DB) error            { ensureID(&m.ID); return nil }
func (m *Charge) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *Coupon) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *Customer) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (m *Discount) BeforeCreate(*gorm.DB) error        { ensureID(&m.ID); return nil }
func (m *Event) BeforeCreate(*gorm.DB) error           { ensureID(&m.ID); return nil }

func (m *EventProcessingException) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

func (m *Invoice) BeforeCreate(*gorm.DB) error           { ensureID(&m.ID); return nil }
func (m *InvoiceItem) BeforeCreate(*gorm.DB) error       { ensureID(&m.ID); return nil }
func (m *Order) BeforeCreate(*gorm.DB) error             { ensureID(&m.ID); return nil }
func (m *OrderItem) BeforeCreate(*gorm.DB) error         { ensureID(&m.ID); return nil }
func (m *Plan) BeforeCreate(*gorm.DB) error              { ensureID(&m.ID); return nil }
func (m *Product) BeforeCreate(*gorm.DB) error           { ensureID(&m.ID); return nil }
func (m *SKU) BeforeCreate(*gorm.DB) error               { ensureID(&m.ID); return nil }
func (m *Subscription) BeforeCreate(*gorm.DB) error      { ensureID(&m.ID); return nil }
func (m *SubscriptionItem) BeforeCreate(*gorm.DB) error  { ensureID(&m.ID); return nil }
func (m *Transfer) BeforeCreate(*gorm.DB) error          { ensureID(&m.ID); return nil }
func (m *TransferChargeFee) BeforeCreate(*gorm.DB) error { ensureID(&m.ID); return nil }
