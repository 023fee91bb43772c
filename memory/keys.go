package memory

import "fmt"

// PrivateGroup is the sentinel group id used for one-on-one conversations.
// Group-dimension memory is skipped entirely for this value.
const PrivateGroup = "PRIVATE"

const (
	userTempPrefix   = "memory:user:temp"
	groupTempPrefix  = "memory:group:temp"
	userLongPrefix   = "memory:user:long"
	groupLongPrefix  = "memory:group:long"
	userPromptPrefix = "memory:user:system_prompt"
)

// UserTempKey addresses the per-user-in-group turn buffer.
func UserTempKey(groupID, userID string) string {
	return fmt.Sprintf("%s:%s:%s", userTempPrefix, groupID, userID)
}

// GroupTempKey addresses the per-group turn buffer.
func GroupTempKey(groupID string) string {
	return fmt.Sprintf("%s:%s", groupTempPrefix, groupID)
}

// UserLongKey addresses a user's long-term profile.
func UserLongKey(groupID, userID string) string {
	return fmt.Sprintf("%s:%s:%s", userLongPrefix, groupID, userID)
}

// GroupLongKey addresses a group's long-term profile.
func GroupLongKey(groupID string) string {
	return fmt.Sprintf("%s:%s", groupLongPrefix, groupID)
}

// UserPromptKey addresses the cached copy of a user's system prompt override.
func UserPromptKey(groupID, userID string) string {
	return fmt.Sprintf("%s:%s:%s", userPromptPrefix, groupID, userID)
}
