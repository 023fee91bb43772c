package memory

import "strings"

// Roles a turn can carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one half of a conversational exchange.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript renders turns into the flat "User: …" / "Assistant: …" form fed to
// the summarizer. Turns with empty content are dropped.
func Transcript(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		role := "Assistant"
		if t.Role == RoleUser {
			role = "User"
		}
		lines = append(lines, role+": "+content)
	}
	return strings.Join(lines, "\n")
}
