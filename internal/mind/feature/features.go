// Package feature defines the fixed vector layouts at the boundary between
// the upstream perception feeds and the latent model: packers turn tagged
// observation structs into fixed-width vectors, unpackers turn decoded
// vectors back into named slices. Layouts are part of the wire/persistence
// contract and must not be reordered.
package feature

// TacticalFeatures is the per-tick output of the upstream tactical
// extractor. NearestEnemy is nil when no enemy is tracked.
type TacticalFeatures struct {
	ThreatLevel       float64       `json:"threat_level"` // 0..1
	NumEnemiesTotal   int           `json:"num_enemies_total"`
	NumEnemiesInLOS   int           `json:"num_enemies_in_los"`
	NearestEnemy      *NearestEnemy `json:"nearest_enemy,omitempty"`
	EscapeVector      []float64     `json:"escape_vector,omitempty"` // len 2 when present
	StealthSafety     float64       `json:"stealth_safety_score"`    // 0..1
	LootOpportunity   bool          `json:"loot_opportunity_available"`
	BestCoverDistance float64       `json:"best_cover_distance,omitempty"` // 0 = unknown
}

type NearestEnemy struct {
	Distance   float64 `json:"distance"`
	BearingDeg float64 `json:"bearing_deg"`
	Health     float64 `json:"health"` // 0..1
}

// SelfState is the agent's own vitals and posture.
type SelfState struct {
	Health     float64 `json:"player_health"`  // 0..1
	Stamina    float64 `json:"player_stamina"` // 0..1
	Magicka    float64 `json:"player_magicka"` // 0..1
	IsSneaking bool    `json:"is_sneaking"`
	InCombat   bool    `json:"in_combat"`
}

// ActionKind enumerates the action types the affordance system emits.
// The one-hot positions in the packed action vector follow this order and
// are stable across versions; new kinds append, never reorder.
type ActionKind string

const (
	ActionIdle     ActionKind = "idle"
	ActionMove     ActionKind = "move"
	ActionAttack   ActionKind = "attack"
	ActionDefend   ActionKind = "defend"
	ActionSneak    ActionKind = "sneak"
	ActionFlee     ActionKind = "flee"
	ActionInteract ActionKind = "interact"
	ActionCast     ActionKind = "cast"
)

var actionKindIndex = map[ActionKind]int{
	ActionIdle:     0,
	ActionMove:     1,
	ActionAttack:   2,
	ActionDefend:   3,
	ActionSneak:    4,
	ActionFlee:     5,
	ActionInteract: 6,
	ActionCast:     7,
}

// ActionDescriptor describes a candidate or taken action.
type ActionDescriptor struct {
	Kind      ActionKind `json:"kind"`
	DurationS float64    `json:"duration_s"`
	Magnitude float64    `json:"magnitude"`
	Direction []float64  `json:"direction,omitempty"` // len 2 when present
}
