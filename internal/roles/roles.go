// Package roles resolves the role identifiers a chat user holds.
// Three independent sources contribute: platform roles derived from the
// triggering event, team roles, and custom roles. A source that knows
// nothing about a user contributes nothing.
package roles

// Platform role identifiers used by multiplier overrides.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// telegramStatusRoles maps Telegram chat-member statuses to role IDs.
// Statuses without a role mapping are dropped.
var telegramStatusRoles = map[string]string{
	"creator":       RoleOwner,
	"administrator": RoleAdmin,
}

// MapPlatform converts platform role claims (Telegram chat-member
// statuses) into role IDs, dropping claims with no mapping.
func MapPlatform(claims []string) []string {
	var out []string
	for _, claim := range claims {
		if role, ok := telegramStatusRoles[claim]; ok {
			out = append(out, role)
		}
	}
	return out
}
