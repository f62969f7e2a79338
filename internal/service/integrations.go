// integrations.go — сервис OAuth-интеграций (GitHub, Slack).
//
// Консоль строит authorize URL провайдера и принимает возврат кода;
// обмен кода на токен выполняет внешний webhook — секреты приложений
// живут только в конфигурации сервера и никогда не попадают в браузер.
// Результат подключения — флаг в профиле пользователя.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/arturkryukov/kbconsole/internal/domain/model"
	"github.com/arturkryukov/kbconsole/internal/notify"
	"github.com/arturkryukov/kbconsole/internal/repository"
	"github.com/arturkryukov/kbconsole/internal/webhook"
)

// ProviderCredentials — учётные данные OAuth-приложения провайдера.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
}

// IntegrationService — сервис OAuth-интеграций.
type IntegrationService struct {
	profileRepo repository.ProfileRepository
	client      *webhook.Client
	notifier    *notify.Notifier
	github      ProviderCredentials
	slack       ProviderCredentials
	redirectURL string
	logger      *slog.Logger
}

// NewIntegrationService создаёт сервис интеграций.
// redirectURL — адрес возврата OAuth (<KB_BASE_URL>/oauth/callback).
func NewIntegrationService(
	profileRepo repository.ProfileRepository,
	client *webhook.Client,
	notifier *notify.Notifier,
	github, slack ProviderCredentials,
	redirectURL string,
	logger *slog.Logger,
) *IntegrationService {
	return &IntegrationService{
		profileRepo: profileRepo,
		client:      client,
		notifier:    notifier,
		github:      github,
		slack:       slack,
		redirectURL: redirectURL,
		logger:      logger.With(slog.String("component", "integration_service")),
	}
}

// oauthConfig возвращает oauth2.Config провайдера.
func (s *IntegrationService) oauthConfig(provider string) (*oauth2.Config, error) {
	switch provider {
	case model.ProviderGitHub:
		if s.github.ClientID == "" {
			return nil, fmt.Errorf("%w: интеграция GitHub не настроена", ErrNotConfigured)
		}
		return &oauth2.Config{
			ClientID:    s.github.ClientID,
			Endpoint:    endpoints.GitHub,
			RedirectURL: s.redirectURL,
			Scopes:      []string{"repo", "read:user"},
		}, nil
	case model.ProviderSlack:
		if s.slack.ClientID == "" {
			return nil, fmt.Errorf("%w: интеграция Slack не настроена", ErrNotConfigured)
		}
		return &oauth2.Config{
			ClientID:    s.slack.ClientID,
			Endpoint:    endpoints.Slack,
			RedirectURL: s.redirectURL,
			Scopes:      []string{"channels:history", "users:read"},
		}, nil
	default:
		return nil, fmt.Errorf("%w: неизвестный провайдер %q", ErrValidation, provider)
	}
}

// AuthorizeURL возвращает URL авторизации провайдера.
// state — имя провайдера: по нему маршрутизируется возврат кода.
func (s *IntegrationService) AuthorizeURL(provider string) (string, error) {
	cfg, err := s.oauthConfig(provider)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(provider), nil
}

// ResolveProvider определяет провайдера по state возврата.
// Slack помечает себя явно; любое другое значение считается GitHub —
// ранние версии консоли не передавали state вовсе.
func (s *IntegrationService) ResolveProvider(state string) string {
	if state == model.ProviderSlack {
		return model.ProviderSlack
	}
	return model.ProviderGitHub
}

// CompleteConnection обменивает OAuth-код через внешний webhook
// и поднимает флаг интеграции в профиле пользователя.
// При ошибке обмена флаги не меняются.
func (s *IntegrationService) CompleteConnection(ctx context.Context, userID, email, provider, code string) error {
	if code == "" {
		return fmt.Errorf("%w: отсутствует код авторизации", ErrValidation)
	}

	creds := s.github
	if provider == model.ProviderSlack {
		creds = s.slack
	}
	if creds.ClientID == "" {
		return fmt.Errorf("%w: интеграция %s не настроена", ErrNotConfigured, provider)
	}

	err := s.client.ExchangeCode(ctx, provider, webhook.ExchangeRequest{
		Code:         code,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Email:        email,
		GrantType:    "authorization_code",
	})
	if err != nil {
		s.logger.Error("Обмен OAuth-кода не удался",
			slog.String("provider", provider),
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		s.notifier.Push(userID, notify.SeverityError,
			fmt.Sprintf("Failed to connect %s", providerTitle(provider)))
		return fmt.Errorf("%w: %s", ErrWebhookUnavailable, err.Error())
	}

	if err := s.profileRepo.SetIntegration(ctx, userID, provider, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("установка флага интеграции: %w", err)
	}

	s.logger.Info("Интеграция подключена",
		slog.String("provider", provider),
		slog.String("user_id", userID),
	)
	s.notifier.Push(userID, notify.SeveritySuccess,
		fmt.Sprintf("%s connected", providerTitle(provider)))
	return nil
}

// Disconnect сбрасывает флаг интеграции провайдера.
// Токены на стороне провайдера не отзываются; флаг другого провайдера
// не затрагивается.
func (s *IntegrationService) Disconnect(ctx context.Context, userID, provider string) error {
	if provider != model.ProviderGitHub && provider != model.ProviderSlack {
		return fmt.Errorf("%w: неизвестный провайдер %q", ErrValidation, provider)
	}

	if err := s.profileRepo.SetIntegration(ctx, userID, provider, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("сброс флага интеграции: %w", err)
	}

	s.logger.Info("Интеграция отключена",
		slog.String("provider", provider),
		slog.String("user_id", userID),
	)
	s.notifier.Push(userID, notify.SeverityInfo,
		fmt.Sprintf("%s disconnected", providerTitle(provider)))
	return nil
}

// providerTitle возвращает отображаемое имя провайдера.
func providerTitle(provider string) string {
	switch provider {
	case model.ProviderGitHub:
		return "GitHub"
	case model.ProviderSlack:
		return "Slack"
	default:
		return provider
	}
}
