package trivia

import "github.com/shopspring/decimal"

// defaultMultiplier applies when no table is configured for a difficulty.
var defaultMultiplier = decimal.RequireFromString("1.25")

// ResolveMultiplier computes the winnings multiplier for a question
// difficulty given the user's resolved role set. With no table the fixed
// default applies. Otherwise the table's overrides are scanned in authored
// order and the first override whose role the user holds wins; with no
// match the table's base value applies.
func ResolveMultiplier(table *MultiplierTable, userRoles []string) decimal.Decimal {
	if table == nil {
		return defaultMultiplier
	}

	held := make(map[string]struct{}, len(userRoles))
	for _, r := range userRoles {
		held[r] = struct{}{}
	}

	for _, override := range table.Roles {
		if _, ok := held[override.RoleID]; ok {
			return override.Value
		}
	}
	return table.Base
}

// Payout computes floor(wager × multiplier). The decimal multiply is
// exact, so e.g. 99 × 1.25 pays 123, never 124.
func Payout(wager int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(wager).Mul(multiplier).Floor().IntPart()
}
