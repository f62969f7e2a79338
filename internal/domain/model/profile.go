package model

import "time"

// Провайдеры OAuth-интеграций.
const (
	ProviderGitHub = "github"
	ProviderSlack  = "slack"
)

// Profile — профиль пользователя: отображаемые данные и флаги интеграций.
// Хранится в таблице profiles, создаётся вместе с пользователем.
type Profile struct {
	// ID — UUID пользователя (совпадает с users.id)
	ID string `json:"id"`
	// Email — адрес электронной почты
	Email string `json:"email"`
	// FullName — полное имя
	FullName string `json:"full_name"`
	// AvatarURL — ссылка на аватар (опционально)
	AvatarURL string `json:"avatar_url"`
	// GitHubConnected — подключена ли интеграция GitHub
	GitHubConnected bool `json:"github_connected"`
	// SlackConnected — подключена ли интеграция Slack
	SlackConnected bool `json:"slack_connected"`
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time `json:"updated_at"`
}
