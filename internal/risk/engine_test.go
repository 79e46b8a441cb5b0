package risk

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/silentauth/silentauth/internal/behavior"
	"github.com/silentauth/silentauth/internal/policy"
)

func ptr(v float64) *float64 { return &v }

// stub collaborators

type stubDevices struct {
	history map[string]*DeviceHistory // deviceID → history
	err     error
	delay   time.Duration
}

func (s *stubDevices) DeviceHistory(ctx context.Context, userID, deviceID string) (*DeviceHistory, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.history[deviceID], nil
}

type stubPrints struct {
	trust map[string]float64
}

func (s *stubPrints) TrustByHash(ctx context.Context, hash string) (*float64, error) {
	if v, ok := s.trust[hash]; ok {
		return &v, nil
	}
	return nil, nil
}

type stubBaselines struct {
	profile *behavior.BaselineProfile
	err     error
	delay   time.Duration
}

func (s *stubBaselines) Baseline(ctx context.Context, userID string) (*behavior.BaselineProfile, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.profile, s.err
}

func flatBaseline() *behavior.BaselineProfile {
	return &behavior.BaselineProfile{
		UserID:      "usr1",
		SampleCount: 5,
		Features: map[string]behavior.FeatureStats{
			"dwellTime": {Mean: 90, StdDev: 10},
		},
	}
}

func normalSample() *behavior.Sample {
	return &behavior.Sample{UserID: "usr1", DwellTime: ptr(92)}
}

func TestKnownDeviceFamiliarBehaviorAllows(t *testing.T) {
	engine := NewEngine(
		&stubBaselines{profile: flatBaseline()},
		&stubDevices{history: map[string]*DeviceHistory{
			"dev1": {SeenCount: 20, TrustScore: 1.0},
		}},
		&stubPrints{trust: map[string]float64{"abcd": 1.0}},
		NewMemoryStore(),
	)

	a, err := engine.Assess(context.Background(), &Request{
		UserID:         "usr1",
		DeviceID:       "dev1",
		TLSFingerprint: "abcd",
		Sample:         normalSample(),
	}, policy.Default())
	if err != nil {
		t.Fatalf("assess: %v", err)
	}

	// All three sub-scores are 1.0, so the weighted sum is 1.0.
	if a.OverallScore != 1.0 {
		t.Errorf("overall = %f, want 1.0", a.OverallScore)
	}
	if a.Decision != DecisionAllow {
		t.Errorf("decision = %s, want allow", a.Decision)
	}
	if !a.Passed {
		t.Error("assessment should pass the silent-auth threshold")
	}
}

func TestUnknownDeviceScoresFixedDefault(t *testing.T) {
	engine := NewEngine(
		&stubBaselines{profile: flatBaseline()},
		&stubDevices{history: map[string]*DeviceHistory{}},
		&stubPrints{},
		nil,
	)

	a, err := engine.Assess(context.Background(), &Request{
		UserID:   "usr1",
		DeviceID: "dev_never_seen",
		Sample:   normalSample(),
	}, policy.Default())
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.DeviceScore != UnknownDeviceScore {
		t.Errorf("device score = %f, want %f", a.DeviceScore, UnknownDeviceScore)
	}
}

func TestNoDeviceIDScoresNeutral(t *testing.T) {
	engine := NewEngine(&stubBaselines{profile: flatBaseline()}, &stubDevices{}, &stubPrints{}, nil)

	a, err := engine.Assess(context.Background(), &Request{
		UserID: "usr1",
		Sample: normalSample(),
	}, policy.Default())
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.DeviceScore != NoDeviceScore {
		t.Errorf("device score = %f, want %f", a.DeviceScore, NoDeviceScore)
	}
}

func TestDeviceFamiliaritySaturatesAtTen(t *testing.T) {
	engine := NewEngine(
		&stubBaselines{profile: flatBaseline()},
		&stubDevices{history: map[string]*DeviceHistory{
			"dev1": {SeenCount: 5, TrustScore: 0.5},
		}},
		&stubPrints{},
		nil,
	)

	a, err := engine.Assess(context.Background(), &Request{
		UserID:   "usr1",
		DeviceID: "dev1",
		Sample:   normalSample(),
	}, policy.Default())
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	// 0.6*(5/10) + 0.4*0.5 = 0.5
	if math.Abs(a.DeviceScore-0.5) > 1e-9 {
		t.Errorf("device score = %f, want 0.5", a.DeviceScore)
	}
}

func TestTLSScoreDefaults(t *testing.T) {
	engine := NewEngine(&stubBaselines{profile: flatBaseline()}, &stubDevices{},
		&stubPrints{trust: map[string]float64{"known": 0.9}}, nil)

	// Absent fingerprint is treated more charitably than an unmatched one.
	a, _ := engine.Assess(context.Background(), &Request{UserID: "usr1", Sample: normalSample()}, policy.Default())
	if a.TLSScore != AbsentTLSScore {
		t.Errorf("absent tls score = %f, want %f", a.TLSScore, AbsentTLSScore)
	}

	a, _ = engine.Assess(context.Background(), &Request{
		UserID: "usr1", TLSFingerprint: "no_match", Sample: normalSample(),
	}, policy.Default())
	if a.TLSScore != UnmatchedTLSScore {
		t.Errorf("unmatched tls score = %f, want %f", a.TLSScore, UnmatchedTLSScore)
	}

	a, _ = engine.Assess(context.Background(), &Request{
		UserID: "usr1", TLSFingerprint: "known", Sample: normalSample(),
	}, policy.Default())
	if a.TLSScore != 0.9 {
		t.Errorf("matched tls score = %f, want 0.9", a.TLSScore)
	}
}

func TestDecisionBoundariesInclusive(t *testing.T) {
	pol := policy.Default()
	cases := []struct {
		overall float64
		want    Decision
	}{
		{1.0, DecisionAllow},
		{0.75, DecisionAllow},
		{0.749999, DecisionStepUp},
		{0.45, DecisionStepUp},
		{0.449999, DecisionBlock},
		{0, DecisionBlock},
	}
	for _, tc := range cases {
		if got := decisionFor(tc.overall, pol); got != tc.want {
			t.Errorf("decisionFor(%f) = %s, want %s", tc.overall, got, tc.want)
		}
	}
}

func TestAllZeroSubScoresBlock(t *testing.T) {
	// Anomalous enough behavior saturates the probability at 1 (trust 0);
	// unknown device and unmatched TLS floor the other signals.
	engine := NewEngine(
		&stubBaselines{profile: flatBaseline()},
		&stubDevices{history: map[string]*DeviceHistory{
			"dev1": {SeenCount: 0, TrustScore: 0},
		}},
		&stubPrints{trust: map[string]float64{"tls1": 0}},
		nil,
	)

	a, err := engine.Assess(context.Background(), &Request{
		UserID:         "usr1",
		DeviceID:       "dev1",
		TLSFingerprint: "tls1",
		Sample:         &behavior.Sample{UserID: "usr1", DwellTime: ptr(500)},
	}, policy.Default())
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.OverallScore != 0 {
		t.Errorf("overall = %f, want 0", a.OverallScore)
	}
	if a.Decision != DecisionBlock {
		t.Errorf("decision = %s, want block", a.Decision)
	}
}

func TestSlowBaselineDegradesToNeutral(t *testing.T) {
	engine := NewEngine(
		&stubBaselines{profile: flatBaseline(), delay: 200 * time.Millisecond},
		&stubDevices{}, &stubPrints{}, nil,
	).WithFetchTimeout(20 * time.Millisecond)

	a, err := engine.Assess(context.Background(), &Request{
		UserID: "usr1", Sample: normalSample(),
	}, policy.Default())
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	// Timeout degrades to the no-baseline neutral behavioral score.
	if a.BehavioralScore != 0.85 {
		t.Errorf("behavioral score = %f, want 0.85 after baseline timeout", a.BehavioralScore)
	}
}

func TestDeviceLookupErrorTreatedAsUnknown(t *testing.T) {
	engine := NewEngine(
		&stubBaselines{profile: flatBaseline()},
		&stubDevices{err: errors.New("connection refused")},
		&stubPrints{}, nil,
	)

	a, err := engine.Assess(context.Background(), &Request{
		UserID: "usr1", DeviceID: "dev1", Sample: normalSample(),
	}, policy.Default())
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if a.DeviceScore != UnknownDeviceScore {
		t.Errorf("device score = %f, want %f on lookup failure", a.DeviceScore, UnknownDeviceScore)
	}
}

func TestAssessmentRecordedToStore(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(&stubBaselines{profile: flatBaseline()}, &stubDevices{}, &stubPrints{}, store)

	if _, err := engine.Assess(context.Background(), &Request{
		UserID: "usr1", Sample: normalSample(),
	}, policy.Default()); err != nil {
		t.Fatalf("assess: %v", err)
	}

	// Persistence is asynchronous; poll briefly.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		scores, _ := store.ListByUser(context.Background(), "usr1", 10)
		if len(scores) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("assessment never reached the store")
}
