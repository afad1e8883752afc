package notify

import "fmt"

// Действия над задачей, о которых уведомляется владелец
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// buildMessage собирает тему и текст письма. Для неизвестного действия
// возвращает ok=false - до отправки дело не доходит.
func buildMessage(email, title, action string) (subject, body string, ok bool) {
	switch action {
	case ActionCreate:
		return "New Task Created",
			fmt.Sprintf("Hello %s,\n\nA new task '%s' has been created.", email, title), true
	case ActionUpdate:
		return "Task Updated",
			fmt.Sprintf("Hello %s,\n\nThe task '%s' has been updated.", email, title), true
	case ActionDelete:
		return "Task Deleted",
			fmt.Sprintf("Hello %s,\n\nThe task '%s' has been deleted.", email, title), true
	}
	return "", "", false
}
