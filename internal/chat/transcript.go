package chat

import (
	"strings"

	"github.com/diogo/chatdrawer/internal/models"
)

// Transcript renders a snapshot as plain text, one block per turn
func Transcript(snap models.Snapshot) string {
	var sb strings.Builder
	for i, t := range snap.Turns {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(t.Role.DisplayName())
		sb.WriteString(": ")
		sb.WriteString(t.Content())
	}
	return sb.String()
}
