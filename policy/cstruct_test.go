package policy

import "testing"

func TestPolicyAgrees(t *testing.T) {
	good := GoodPolicy("g1")
	bad := BadPolicy("b1")
	moody1 := MoodyPolicy(1, "m1")
	moody1b := MoodyPolicy(1, "m2")
	moody2 := MoodyPolicy(2, "m3")

	for _, p := range []Policy{good, bad, moody1} {
		if !p.Agrees(p) {
			t.Error("policy does not agree with itself: ", p)
		}
	}
	if !good.Agrees(moody1) || !moody1.Agrees(good) {
		t.Error("good should agree with moody")
	}
	if bad.Agrees(good) || good.Agrees(bad) {
		t.Error("bad should conflict with good")
	}
	if bad.Agrees(BadPolicy("b2")) {
		t.Error("two distinct bad policies should conflict")
	}
	if moody1.Agrees(moody1b) {
		t.Error("same-group moody policies should conflict")
	}
	if !moody1.Agrees(moody2) {
		t.Error("different-group moody policies should agree")
	}
}

func TestAcceptanceAgrees(t *testing.T) {
	b1 := BadPolicy("b1")
	b2 := BadPolicy("b2")
	if Accepted(b1).Agrees(Accepted(b2)) {
		t.Error("accepted conflicting policies should conflict")
	}
	if !Rejected(b1).Agrees(Accepted(b2)) {
		t.Error("a rejection should never conflict")
	}
	if !Rejected(b1).Agrees(Rejected(b2)) {
		t.Error("two rejections should never conflict")
	}
}

func TestAddCommand(t *testing.T) {
	cfg := NewConfiguration(Accepted(GoodPolicy("g1")))
	cfg2, err := AddCommand(Accepted(GoodPolicy("g2")), cfg)
	if err != nil {
		t.Fatal("agreeing command refused: ", err)
	}
	if cfg2.Len() != 2 {
		t.Error("expected 2 commands, got ", cfg2.Len())
	}
	if cfg.Len() != 1 {
		t.Error("AddCommand mutated its input")
	}
	if _, err := AddCommand(Accepted(BadPolicy("b1")), cfg2); err != ErrConflict {
		t.Error("conflicting command accepted, err = ", err)
	}
}

func TestAcceptOrReject(t *testing.T) {
	cfg := NewConfiguration(Accepted(BadPolicy("b1")))
	a, cfg2 := AcceptOrReject(BadPolicy("b2"), cfg)
	if a.Accepted {
		t.Error("conflicting policy should be rejected")
	}
	if !cfg2[Rejected(BadPolicy("b2"))] {
		t.Error("rejection not recorded")
	}
	a, cfg3 := AcceptOrReject(GoodPolicy("g1"), NewConfiguration())
	if !a.Accepted || !cfg3[Accepted(GoodPolicy("g1"))] {
		t.Error("agreeing policy should be accepted")
	}
}

func TestExtendsPartialOrder(t *testing.T) {
	small := NewConfiguration(Accepted(GoodPolicy("g1")))
	mid := NewConfiguration(Accepted(GoodPolicy("g1")), Accepted(GoodPolicy("g2")))
	big := NewConfiguration(Accepted(GoodPolicy("g1")), Accepted(GoodPolicy("g2")), Rejected(BadPolicy("b1")))

	for _, c := range []Configuration{small, mid, big} {
		if !c.Extends(c) {
			t.Error("extends should be reflexive on ", c)
		}
	}
	if !mid.Extends(small) || !big.Extends(mid) {
		t.Fatal("superset should extend subset")
	}
	if !big.Extends(small) {
		t.Error("extends should be transitive")
	}
	if small.Extends(mid) {
		t.Error("subset should not extend proper superset")
	}
	if mid.Extends(small) && small.Extends(mid) && !mid.Equal(small) {
		t.Error("extends should be antisymmetric")
	}
}

func TestGLBLUBLaws(t *testing.T) {
	a := NewConfiguration(Accepted(GoodPolicy("g1")), Rejected(BadPolicy("b1")))
	b := NewConfiguration(Accepted(GoodPolicy("g2")), Rejected(BadPolicy("b1")))
	c := NewConfiguration(Accepted(GoodPolicy("g3")))

	ab, err := GLB(a, b)
	if err != nil {
		t.Fatal("glb of agreeing configurations failed: ", err)
	}
	ba, _ := GLB(b, a)
	if !ab.Equal(ba) {
		t.Error("glb should be commutative")
	}
	abc1, _ := GLB(ab, c)
	bc, _ := GLB(b, c)
	abc2, _ := GLB(a, bc)
	if !abc1.Equal(abc2) {
		t.Error("glb should be associative")
	}

	if !LUB(a, b).Equal(LUB(b, a)) {
		t.Error("lub should be commutative")
	}
	if !LUB(LUB(a, b), c).Equal(LUB(a, LUB(b, c))) {
		t.Error("lub should be associative")
	}
	if !LUB(a, a).Equal(a) {
		t.Error("lub should be idempotent")
	}
	if !LUB(a, b).Equal(NewConfiguration(Rejected(BadPolicy("b1")))) {
		t.Error("lub should be the intersection, got ", LUB(a, b))
	}

	conflicting := NewConfiguration(Accepted(BadPolicy("b2")))
	if _, err := GLB(a, conflicting); err != ErrContradictive {
		t.Error("glb of conflicting configurations should fail, err = ", err)
	}
}

func TestContains(t *testing.T) {
	cfg := NewConfiguration(Accepted(GoodPolicy("g1")), Rejected(BadPolicy("b1")))
	if !cfg.Contains(GoodPolicy("g1")) {
		t.Error("accepted policy should be contained")
	}
	if !cfg.Contains(BadPolicy("b1")) {
		t.Error("rejected policy should be contained")
	}
	if cfg.Contains(GoodPolicy("g2")) {
		t.Error("unseen policy should not be contained")
	}
}

func TestDiff(t *testing.T) {
	base := NewConfiguration(Accepted(GoodPolicy("g1")))
	cur := NewConfiguration(Accepted(GoodPolicy("g1")), Rejected(BadPolicy("b1")))
	d := cur.Diff(base)
	if len(d) != 1 || d[0] != Rejected(BadPolicy("b1")) {
		t.Error("unexpected diff: ", d)
	}
	if len(base.Diff(cur)) != 0 {
		t.Error("diff against superset should be empty")
	}
}

func TestContradictive(t *testing.T) {
	ok := NewConfiguration(Accepted(GoodPolicy("g1")), Rejected(BadPolicy("b1")))
	if ok.Contradictive() {
		t.Error("well-formed configuration flagged contradictive")
	}
	bad := Configuration{
		Accepted(BadPolicy("b1")): true,
		Accepted(BadPolicy("b2")): true,
	}
	if !bad.Contradictive() {
		t.Error("conflicting pair not flagged")
	}
}
