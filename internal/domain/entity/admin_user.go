package entity

import "time"

// AdminUser - запись о праве пользователя на доступ к админ-панели
type AdminUser struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (AdminUser) TableName() string {
	return "admin_users"
}
