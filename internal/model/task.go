package model

import (
	"bytes"
	"fmt"
	"time"
)

// TimeLayout - формат дат во всех JSON-ответах API
const TimeLayout = "2006-01-02 15:04:05"

// Допустимые статусы задачи
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// DateTime сериализуется строкой в формате TimeLayout вместо RFC 3339
type DateTime time.Time

func (d DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(d).Format(TimeLayout) + `"`), nil
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(bytes.Trim(data, `"`))
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return fmt.Errorf("invalid datetime %q: %w", s, err)
	}
	*d = DateTime(t)
	return nil
}

func (d DateTime) Time() time.Time { return time.Time(d) }

type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	DueDate     *DateTime `json:"due_date"`
	Owner       string    `json:"-"`
	CreatedAt   DateTime  `json:"created_at"`
	UpdatedAt   DateTime  `json:"updated_at"`
}

// User - аутентифицированный принципал запроса. Email служит ключом
// рейт-лимитера, получателем уведомлений и признаком владения задачей.
type User struct {
	ID    int64
	Email string
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	DueDate     *string `json:"due_date"`
}

// UpdateTaskRequest - частичное обновление: применяются только присланные поля
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"due_date"`
}

type TaskFilter struct {
	Status *string
	Search *string
}

type ListQuery struct {
	Page   int
	Limit  int
	Filter TaskFilter
}

type TaskPage struct {
	Tasks []Task `json:"tasks"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Total int    `json:"total"`
}
