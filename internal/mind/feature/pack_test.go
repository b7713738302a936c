package feature

import (
	"errors"
	"testing"
)

func TestPackTactical_NoTargetSentinel(t *testing.T) {
	v, err := PackTactical(TacticalFeatures{
		ThreatLevel:     0.75,
		NumEnemiesTotal: 2,
		NearestEnemy:    nil,
	})
	if err != nil {
		t.Fatalf("PackTactical: %v", err)
	}
	if len(v) != TacticalWidth {
		t.Fatalf("width: got %d want %d", len(v), TacticalWidth)
	}
	if v[0] != 0.75 {
		t.Fatalf("threat slot: got %v want 0.75", v[0])
	}
	if v[1] != 2 {
		t.Fatalf("enemy count slot: got %v want 2", v[1])
	}
	if v[3] != NoTargetDistance {
		t.Fatalf("nearest distance slot: got %v want sentinel %v", v[3], NoTargetDistance)
	}
	if v[4] != 0 || v[5] != 0 {
		t.Fatalf("absent enemy must zero bearing/health, got %v %v", v[4], v[5])
	}
	if v[10] != NoTargetDistance {
		t.Fatalf("cover distance slot: got %v want sentinel", v[10])
	}
}

func TestPackTactical_FullFeatures(t *testing.T) {
	v, err := PackTactical(TacticalFeatures{
		ThreatLevel:       0.4,
		NumEnemiesTotal:   3,
		NumEnemiesInLOS:   1,
		NearestEnemy:      &NearestEnemy{Distance: 12.5, BearingDeg: 90, Health: 0.8},
		EscapeVector:      []float64{-1, 0.5},
		StealthSafety:     0.9,
		LootOpportunity:   true,
		BestCoverDistance: 4.0,
	})
	if err != nil {
		t.Fatalf("PackTactical: %v", err)
	}
	if v[3] != 12.5 || v[4] != 0.25 || v[5] != 0.8 {
		t.Fatalf("nearest enemy slots: got %v %v %v", v[3], v[4], v[5])
	}
	if v[6] != -1 || v[7] != 0.5 {
		t.Fatalf("escape slots: got %v %v", v[6], v[7])
	}
	if v[9] != 1 {
		t.Fatalf("loot slot: got %v want 1", v[9])
	}
	if v[10] != 4.0 {
		t.Fatalf("cover slot: got %v want 4", v[10])
	}
	for i := 11; i < TacticalWidth; i++ {
		if v[i] != 0 {
			t.Fatalf("reserved slot %d not zero: %v", i, v[i])
		}
	}
}

func TestPackTactical_BadEscapeVector(t *testing.T) {
	_, err := PackTactical(TacticalFeatures{EscapeVector: []float64{1, 2, 3}})
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("want ShapeError, got %v", err)
	}
	if se.Field != "escape_vector" || se.Want != 2 || se.Got != 3 {
		t.Fatalf("ShapeError fields: %+v", se)
	}
}

func TestPackSelf_ClampAndFlags(t *testing.T) {
	v := PackSelf(SelfState{Health: 1.5, Stamina: -0.2, Magicka: 0.3, IsSneaking: true})
	if v[0] != 1 {
		t.Fatalf("health must clamp to 1, got %v", v[0])
	}
	if v[1] != 0 {
		t.Fatalf("stamina must clamp to 0, got %v", v[1])
	}
	if v[3] != 1 || v[4] != 0 {
		t.Fatalf("posture flags: got %v %v", v[3], v[4])
	}
	if len(v) != SelfWidth {
		t.Fatalf("width: got %d want %d", len(v), SelfWidth)
	}
}

func TestPackAction_OneHotStable(t *testing.T) {
	kinds := []ActionKind{ActionIdle, ActionMove, ActionAttack, ActionDefend,
		ActionSneak, ActionFlee, ActionInteract, ActionCast}
	for want, k := range kinds {
		v, err := PackAction(ActionDescriptor{Kind: k})
		if err != nil {
			t.Fatalf("PackAction(%s): %v", k, err)
		}
		for i := 0; i < 8; i++ {
			expect := 0.0
			if i == want {
				expect = 1.0
			}
			if v[i] != expect {
				t.Fatalf("kind %s slot %d: got %v want %v", k, i, v[i], expect)
			}
		}
	}

	// Unknown kinds fall back to idle rather than erroring.
	v, err := PackAction(ActionDescriptor{Kind: "teleport"})
	if err != nil {
		t.Fatalf("unknown kind: %v", err)
	}
	if v[0] != 1 {
		t.Fatalf("unknown kind must pack as idle")
	}
}

func TestPackAction_BadDirection(t *testing.T) {
	_, err := PackAction(ActionDescriptor{Kind: ActionMove, Direction: []float64{1}})
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("want ShapeError, got %v", err)
	}
}

func TestUnpack_FieldCounts(t *testing.T) {
	w := UnpackWorld(make([]float64, TacticalWidth))
	s := UnpackSelf(make([]float64, SelfWidth))
	a := UnpackAffect(make([]float64, AffectWidth))
	_ = w
	_ = s
	_ = a

	// Round-trip a packed tactical vector through the world unpack.
	in := TacticalFeatures{
		ThreatLevel:     0.5,
		NumEnemiesTotal: 4,
		NearestEnemy:    &NearestEnemy{Distance: 7, BearingDeg: 180, Health: 0.5},
	}
	v, _ := PackTactical(in)
	out := UnpackWorld(v)
	if out.ThreatLevel != 0.5 || out.NumEnemiesTotal != 4 || out.NearestDistance != 7 {
		t.Fatalf("world unpack mismatch: %+v", out)
	}
	if out.NearestBearing != 0.5 {
		t.Fatalf("bearing fraction: got %v want 0.5", out.NearestBearing)
	}
}
