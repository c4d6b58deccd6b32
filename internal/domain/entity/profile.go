package entity

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

const (
	referralCodeLength   = 6
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Profile представляет профиль пользователя. ID совпадает с идентификатором пользователя у провайдера
type Profile struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:255;not null" json:"email"`
	Name         string    `gorm:"size:100" json:"name"`
	ReferralCode string    `gorm:"size:6;uniqueIndex" json:"referral_code"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Profile) TableName() string {
	return "profiles"
}

// DefaultName возвращает имя по умолчанию - локальную часть email
func DefaultName(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

// NewReferralCode генерирует случайный код из 6 заглавных букв и цифр
func NewReferralCode() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(referralCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// MergeMissing заполняет пустые поля p значениями из other и сообщает, изменилось ли что-нибудь.
// Уже заполненные поля не перезаписываются.
func (p *Profile) MergeMissing(other *Profile) bool {
	changed := false
	if p.Email == "" && other.Email != "" {
		p.Email = other.Email
		changed = true
	}
	if p.Name == "" && other.Name != "" {
		p.Name = other.Name
		changed = true
	}
	if p.ReferralCode == "" && other.ReferralCode != "" {
		p.ReferralCode = other.ReferralCode
		changed = true
	}
	return changed
}
