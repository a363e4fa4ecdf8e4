package api

import "github.com/diogo/chatdrawer/internal/models"

// History converts a transcript into the messages sent to the endpoint.
// Errored turns and assistant turns without content are left out, since the
// model never produced them.
func History(turns []models.Turn) []models.HistoryMessage {
	messages := make([]models.HistoryMessage, 0, len(turns))
	for _, t := range turns {
		if t.Status == models.StatusErrored || t.Status == models.StatusPending {
			continue
		}
		content := t.Content()
		if t.Role == models.RoleAssistant && content == "" {
			continue
		}
		messages = append(messages, models.HistoryMessage{Role: t.Role, Content: content})
	}
	return messages
}
