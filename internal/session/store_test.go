package session

import (
	"testing"

	"bursa/internal/domain"
	"bursa/pkg/bursa"
)

func TestBeginAndCurrent(t *testing.T) {
	s := NewStore()
	if s.Current() != nil {
		t.Fatal("new store should be logged out")
	}

	user := &domain.UserSnapshot{Balance: 100000, Portfolio: map[string]float64{"BTC": 1}}
	sess := s.Begin("42", user)
	if sess.Identity != "42" || sess.User.Balance != 100000 {
		t.Errorf("session = %+v", sess)
	}
	if s.Current() != sess {
		t.Error("Current should return the begun session")
	}

	user.Portfolio["BTC"] = 99
	if s.Current().User.Portfolio["BTC"] != 1 {
		t.Error("store must not share the caller's portfolio map")
	}
}

func TestBeginWithoutSnapshot(t *testing.T) {
	s := NewStore()
	sess := s.Begin("ana", nil)
	if sess.User == nil || sess.User.Portfolio == nil {
		t.Fatal("nil snapshot should become an empty one")
	}
}

func TestReplaceIsWholesaleAndImmutable(t *testing.T) {
	s := NewStore()
	first := s.Begin("42", &domain.UserSnapshot{Balance: 100000, Portfolio: map[string]float64{"GGAL": 5}})

	ok := s.Replace(first.Generation, &domain.UserSnapshot{Balance: 89795, Portfolio: map[string]float64{"MELI": 1}})
	if !ok {
		t.Fatal("Replace for the active generation should apply")
	}
	cur := s.Current()
	if cur.User.Balance != 89795 {
		t.Errorf("Balance = %v, want 89795", cur.User.Balance)
	}
	if _, held := cur.User.Portfolio["GGAL"]; held {
		t.Error("portfolio must be replaced, not merged")
	}
	if first.User.Balance != 100000 {
		t.Error("previously returned session was mutated")
	}
	if cur.Identity != "42" || cur.Generation != first.Generation {
		t.Errorf("identity/generation changed on replace: %+v", cur)
	}
}

func TestReplaceRejectsStaleGeneration(t *testing.T) {
	s := NewStore()
	old := s.Begin("42", nil)
	s.End()

	if s.Replace(old.Generation, &domain.UserSnapshot{Balance: 1}) {
		t.Error("Replace after logout must be rejected")
	}

	s.Begin("43", &domain.UserSnapshot{Balance: 7})
	if s.Replace(old.Generation, &domain.UserSnapshot{Balance: 1}) {
		t.Error("Replace from a previous login must be rejected")
	}
	if s.Current().User.Balance != 7 {
		t.Errorf("Balance = %v, want 7", s.Current().User.Balance)
	}
	if s.Replace(s.Generation(), nil) {
		t.Error("nil snapshot must not apply")
	}
}

func TestFromUserData(t *testing.T) {
	if FromUserData(nil) != nil {
		t.Error("nil payload should convert to nil")
	}
	src := &bursa.UserData{Balance: 500, Portfolio: map[string]float64{"GGAL": 3}, Initial: 1000}
	snap := FromUserData(src)
	if snap.Balance != 500 || snap.Holding("GGAL") != 3 || snap.Initial != 1000 {
		t.Errorf("snapshot = %+v", snap)
	}
	src.Portfolio["GGAL"] = 7
	if snap.Holding("GGAL") != 3 {
		t.Error("snapshot must not alias the payload portfolio")
	}
}
