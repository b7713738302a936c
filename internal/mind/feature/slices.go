package feature

import "mentalworld.ai/internal/mind/vecmath"

// WorldSlice is the decoded tactical estimate. Field meanings mirror the
// tactical input layout; values are model estimates, not ground truth.
type WorldSlice struct {
	ThreatLevel       float64    `json:"threat_level"`
	NumEnemiesTotal   float64    `json:"num_enemies_total"`
	NumEnemiesInLOS   float64    `json:"num_enemies_in_los"`
	NearestDistance   float64    `json:"nearest_distance"`
	NearestBearing    float64    `json:"nearest_bearing"` // fraction of a turn, 0..1
	NearestHealth     float64    `json:"nearest_health"`
	EscapeVector      [2]float64 `json:"escape_vector"`
	StealthSafety     float64    `json:"stealth_safety"`
	LootOpportunity   float64    `json:"loot_opportunity"`
	BestCoverDistance float64    `json:"best_cover_distance"`
}

// SelfSlice is the decoded self-state estimate.
type SelfSlice struct {
	Health     float64 `json:"health"`
	Stamina    float64 `json:"stamina"`
	Magicka    float64 `json:"magicka"`
	IsSneaking float64 `json:"is_sneaking"`
	InCombat   float64 `json:"in_combat"`
}

// AffectSlice is the decoded affect estimate. All four values are squashed
// to 0..1 at decode time.
type AffectSlice struct {
	Threat    float64 `json:"threat"`
	Curiosity float64 `json:"curiosity"`
	Value     float64 `json:"value"`
	Surprise  float64 `json:"surprise"`
}

// UnpackWorld reads the 16-slot tactical layout back into named fields.
// Slots 11..15 are reserved and ignored.
func UnpackWorld(v vecmath.Vector) WorldSlice {
	return WorldSlice{
		ThreatLevel:       v[0],
		NumEnemiesTotal:   v[1],
		NumEnemiesInLOS:   v[2],
		NearestDistance:   v[3],
		NearestBearing:    v[4],
		NearestHealth:     v[5],
		EscapeVector:      [2]float64{v[6], v[7]},
		StealthSafety:     v[8],
		LootOpportunity:   v[9],
		BestCoverDistance: v[10],
	}
}

func UnpackSelf(v vecmath.Vector) SelfSlice {
	return SelfSlice{
		Health:     v[0],
		Stamina:    v[1],
		Magicka:    v[2],
		IsSneaking: v[3],
		InCombat:   v[4],
	}
}

func UnpackAffect(v vecmath.Vector) AffectSlice {
	return AffectSlice{
		Threat:    v[0],
		Curiosity: v[1],
		Value:     v[2],
		Surprise:  v[3],
	}
}
