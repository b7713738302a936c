package feature

import "mentalworld.ai/internal/mind/vecmath"

// Packed vector widths.
const (
	TacticalWidth = 16
	SelfWidth     = 8
	ActionWidth   = 16
	AffectWidth   = 4
)

// NoTargetDistance is the sentinel packed into distance slots when the
// corresponding target is absent (no enemy tracked, no cover known).
const NoTargetDistance = 999.0

// Tactical layout, width 16:
//
//	[0]  threat_level
//	[1]  num_enemies_total
//	[2]  num_enemies_in_los
//	[3]  nearest_enemy.distance      (NoTargetDistance when absent)
//	[4]  nearest_enemy.bearing_deg/360 (0 when absent)
//	[5]  nearest_enemy.health        (0 when absent)
//	[6]  escape_vector.x
//	[7]  escape_vector.y
//	[8]  stealth_safety_score
//	[9]  loot_opportunity            (0/1)
//	[10] best_cover_distance         (NoTargetDistance when unknown)
//	[11..15] reserved, zero
func PackTactical(f TacticalFeatures) (vecmath.Vector, error) {
	if f.EscapeVector != nil && len(f.EscapeVector) != 2 {
		return nil, &ShapeError{Field: "escape_vector", Want: 2, Got: len(f.EscapeVector)}
	}

	v := vecmath.Zeros(TacticalWidth)
	v[0] = vecmath.Clamp01(f.ThreatLevel)
	v[1] = float64(f.NumEnemiesTotal)
	v[2] = float64(f.NumEnemiesInLOS)
	if f.NearestEnemy != nil {
		v[3] = f.NearestEnemy.Distance
		v[4] = f.NearestEnemy.BearingDeg / 360.0
		v[5] = vecmath.Clamp01(f.NearestEnemy.Health)
	} else {
		v[3] = NoTargetDistance
	}
	if f.EscapeVector != nil {
		v[6] = f.EscapeVector[0]
		v[7] = f.EscapeVector[1]
	}
	v[8] = vecmath.Clamp01(f.StealthSafety)
	if f.LootOpportunity {
		v[9] = 1
	}
	if f.BestCoverDistance > 0 {
		v[10] = f.BestCoverDistance
	} else {
		v[10] = NoTargetDistance
	}
	return v, nil
}

// Self layout, width 8:
//
//	[0] health  [1] stamina  [2] magicka   (clamped to 0..1)
//	[3] is_sneaking (0/1)  [4] in_combat (0/1)
//	[5..7] reserved, zero
func PackSelf(s SelfState) vecmath.Vector {
	v := vecmath.Zeros(SelfWidth)
	v[0] = vecmath.Clamp01(s.Health)
	v[1] = vecmath.Clamp01(s.Stamina)
	v[2] = vecmath.Clamp01(s.Magicka)
	if s.IsSneaking {
		v[3] = 1
	}
	if s.InCombat {
		v[4] = 1
	}
	return v
}

// Action layout, width 16:
//
//	[0..7]   one-hot action kind (idle, move, attack, defend, sneak,
//	         flee, interact, cast); unknown kinds pack as idle
//	[8]      duration_s
//	[9]      magnitude
//	[10..11] direction x,y
//	[12..15] reserved, zero
func PackAction(a ActionDescriptor) (vecmath.Vector, error) {
	if a.Direction != nil && len(a.Direction) != 2 {
		return nil, &ShapeError{Field: "direction", Want: 2, Got: len(a.Direction)}
	}

	v := vecmath.Zeros(ActionWidth)
	idx, ok := actionKindIndex[a.Kind]
	if !ok {
		idx = 0
	}
	v[idx] = 1
	v[8] = a.DurationS
	v[9] = a.Magnitude
	if a.Direction != nil {
		v[10] = a.Direction[0]
		v[11] = a.Direction[1]
	}
	return v, nil
}
