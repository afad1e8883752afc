package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/egorvla/task-tracker-api/internal/model"
)

// Тело запроса к почтовому провайдеру
type mailRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Content          []mailContent     `json:"content"`
}

type personalization struct {
	To      []address `json:"to"`
	Subject string    `json:"subject"`
}

type address struct {
	Email string `json:"email"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Sender отправляет письмо одним POST-запросом к провайдеру.
// Провайдер подтверждает прием статусом 202.
type Sender struct {
	client   *http.Client
	endpoint string
	apiKey   string
	from     string
	logger   *zap.Logger
}

func NewSender(endpoint, apiKey, from string, logger *zap.Logger) *Sender {
	return &Sender{
		client:   &http.Client{Timeout: 5 * time.Second},
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		logger:   logger,
	}
}

// Send уведомляет пользователя о действии над задачей. Уведомление
// вспомогательное: любая ошибка доставки логируется и превращается в
// false, наверх ничего не поднимается.
func (s *Sender) Send(ctx context.Context, user model.User, task model.Task, action string) bool {
	subject, body, ok := buildMessage(user.Email, task.Title, action)
	if !ok {
		s.logger.Warn("unknown notification action", zap.String("action", action))
		return false
	}

	payload, err := json.Marshal(mailRequest{
		Personalizations: []personalization{{
			To:      []address{{Email: user.Email}},
			Subject: subject,
		}},
		From:    address{Email: s.from},
		Content: []mailContent{{Type: "text/plain", Value: body}},
	})
	if err != nil {
		s.logger.Error("failed to marshal notification", zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("failed to build notification request", zap.Error(err))
		return false
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("notification request failed",
			zap.String("action", action),
			zap.Int64("task_id", task.ID),
			zap.Error(err),
		)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		s.logger.Error("notification rejected by provider",
			zap.String("action", action),
			zap.Int64("task_id", task.ID),
			zap.Int("status", resp.StatusCode),
		)
		return false
	}
	return true
}
