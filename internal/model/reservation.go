package model

import "time"

// Reservation запись клиента к мастеру. Минуты у AppointmentTime всегда :00.
// Уникальный индекс по (appointment_time, staff) страхует проверку занятости перед вставкой.
type Reservation struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	ClientName      string    `json:"client_name" gorm:"type:varchar(100)"`
	ClientPhone     string    `json:"client_phone" gorm:"type:varchar(20);index"`
	AppointmentTime time.Time `json:"appointment_time" gorm:"type:timestamp;uniqueIndex:appointments_time_staff_unique"`
	Staff           string    `json:"staff" gorm:"type:varchar(100);uniqueIndex:appointments_time_staff_unique"`
	SheetIsSynced   bool      `json:"sheet_is_synced" gorm:"default:false"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName таблица осталась от первой версии бота
func (Reservation) TableName() string {
	return "appointments"
}
