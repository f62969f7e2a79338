// Пакет model — доменные модели KB Console.
package model

import "time"

// User — пользователь консоли с внутренней аутентификацией.
// Хранится в таблице users. Хэш пароля наружу не отдаётся.
type User struct {
	// ID — UUID пользователя
	ID string `json:"id"`
	// Email — адрес электронной почты (уникальный)
	Email string `json:"email"`
	// PasswordHash — bcrypt-хэш пароля
	PasswordHash string `json:"-"`
	// FullName — полное имя
	FullName string `json:"full_name"`
	// CreatedAt — время регистрации
	CreatedAt time.Time `json:"created_at"`
	// LastSignInAt — время последнего входа (nil, если не входил)
	LastSignInAt *time.Time `json:"last_sign_in_at"`
}
