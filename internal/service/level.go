package service

// levelTier maps a cumulative coin threshold to a level and its name.
type levelTier struct {
	level     int
	threshold int64
	name      string
}

// levelTiers is the fixed ascending threshold table. Tier 1 is the
// floor with threshold 0.
var levelTiers = []levelTier{
	{1, 0, "Novice"},
	{2, 5_000, "Explorer"},
	{3, 25_000, "Apprentice"},
	{4, 100_000, "Warrior"},
	{5, 500_000, "Master"},
	{6, 1_000_000, "Champion"},
	{7, 20_000_000, "Tactician"},
	{8, 100_000_000, "Specialist"},
	{9, 500_000_000, "Conqueror"},
	{10, 1_000_000_000, "Legend"},
}

// ResolveLevel maps cumulative coins to a level and level name. The
// returned level is never lower than currentLevel: a concurrent reader
// observing a stale, lower total must not demote anyone.
func ResolveLevel(totalCoins int64, currentLevel int) (int, string) {
	resolved := levelTiers[0]
	for _, tier := range levelTiers {
		if totalCoins >= tier.threshold {
			resolved = tier
		}
	}

	if currentLevel > resolved.level {
		for _, tier := range levelTiers {
			if tier.level == currentLevel {
				return tier.level, tier.name
			}
		}
		// currentLevel is outside the table; keep it, highest name wins
		return currentLevel, levelTiers[len(levelTiers)-1].name
	}

	return resolved.level, resolved.name
}
