package risk

import (
	"context"
	"math"
	"time"

	"github.com/silentauth/silentauth/internal/anomaly"
	"github.com/silentauth/silentauth/internal/behavior"
	"github.com/silentauth/silentauth/internal/idgen"
	"github.com/silentauth/silentauth/internal/logging"
	"github.com/silentauth/silentauth/internal/metrics"
	"github.com/silentauth/silentauth/internal/policy"
	"github.com/silentauth/silentauth/internal/traces"
)

// DefaultFetchTimeout bounds each sub-score's data fetch. A slow fetch
// degrades to the signal's neutral default instead of hanging the
// assessment.
const DefaultFetchTimeout = 3 * time.Second

// Engine combines device, TLS, and behavioral signals into one score.
type Engine struct {
	baselines    BaselineSource
	devices      DeviceLookup
	fingerprints FingerprintLookup
	store        Store
	fetchTimeout time.Duration
}

// NewEngine creates a composite risk engine.
func NewEngine(baselines BaselineSource, devices DeviceLookup, fingerprints FingerprintLookup, store Store) *Engine {
	return &Engine{
		baselines:    baselines,
		devices:      devices,
		fingerprints: fingerprints,
		store:        store,
		fetchTimeout: DefaultFetchTimeout,
	}
}

// WithFetchTimeout overrides the per-signal fetch timeout.
func (e *Engine) WithFetchTimeout(d time.Duration) *Engine {
	if d > 0 {
		e.fetchTimeout = d
	}
	return e
}

// Assess computes the composite risk for one authentication request under
// the given policy. The three sub-scores have no data dependency on each
// other and are fetched concurrently.
func (e *Engine) Assess(ctx context.Context, req *Request, pol policy.Policy) (*Assessment, error) {
	ctx, span := traces.StartSpan(ctx, "risk.Assess",
		traces.UserID(req.UserID), traces.DeviceID(req.DeviceID))
	defer span.End()

	var (
		deviceScore float64
		tlsScore    float64
		anomalyRes  *anomaly.Result
	)

	deviceCh := make(chan float64, 1)
	tlsCh := make(chan float64, 1)
	behaviorCh := make(chan *anomaly.Result, 1)

	go func() { deviceCh <- e.deviceScore(ctx, req.UserID, req.DeviceID) }()
	go func() { tlsCh <- e.tlsScore(ctx, req.TLSFingerprint) }()
	go func() { behaviorCh <- e.behavioralResult(ctx, req.UserID, req.Sample) }()

	for i := 0; i < 3; i++ {
		select {
		case deviceScore = <-deviceCh:
		case tlsScore = <-tlsCh:
		case anomalyRes = <-behaviorCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	overall := deviceScore*pol.DeviceWeight +
		tlsScore*pol.TLSWeight +
		anomalyRes.OverallScore*pol.BehavioralWeight
	overall = clamp01(overall)

	decision := decisionFor(overall, pol)

	a := &Assessment{
		ID:              idgen.WithPrefix("rsk_"),
		UserID:          req.UserID,
		SessionID:       req.SessionID,
		DeviceScore:     round3(deviceScore),
		TLSScore:        round3(tlsScore),
		BehavioralScore: round3(anomalyRes.OverallScore),
		OverallScore:    round3(overall),
		Factors: map[string]float64{
			"device":     round3(deviceScore * pol.DeviceWeight),
			"tls":        round3(tlsScore * pol.TLSWeight),
			"behavioral": round3(anomalyRes.OverallScore * pol.BehavioralWeight),
		},
		Threshold:   pol.SilentAuthThreshold,
		Passed:      decision == DecisionAllow,
		Decision:    decision,
		Anomaly:     anomalyRes,
		EvaluatedAt: time.Now(),
	}

	span.SetAttributes(traces.TrustScore(a.OverallScore), traces.Recommendation(string(decision)))
	metrics.RiskAssessmentsTotal.WithLabelValues(string(decision)).Inc()

	// Persist asynchronously (best-effort audit trail)
	if e.store != nil {
		go func() {
			if err := e.store.Record(context.Background(), a); err != nil {
				logging.L(ctx).Error("failed to record assessment", "id", a.ID, "error", err)
			}
		}()
	}

	return a, nil
}

// deviceScore resolves device familiarity. An unknown device scores
// UnknownDeviceScore; a request with no device ID scores NoDeviceScore.
// Known devices combine use count with accumulated trust.
func (e *Engine) deviceScore(ctx context.Context, userID, deviceID string) float64 {
	if deviceID == "" {
		return NoDeviceScore
	}
	if e.devices == nil {
		return UnknownDeviceScore
	}

	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	hist, err := e.devices.DeviceHistory(ctx, userID, deviceID)
	if err != nil {
		logging.L(ctx).Warn("device lookup failed, treating device as unknown",
			"user_id", userID, "device_id", deviceID, "error", err)
		return UnknownDeviceScore
	}
	if hist == nil {
		return UnknownDeviceScore
	}

	familiarity := math.Min(1, float64(hist.SeenCount)/DeviceFamiliarityCap)
	return clamp01(DeviceFamiliarityWeight*familiarity + DeviceTrustWeight*hist.TrustScore)
}

// tlsScore resolves fingerprint trust. Absent fingerprints default higher
// than unmatched ones.
func (e *Engine) tlsScore(ctx context.Context, hash string) float64 {
	if hash == "" {
		return AbsentTLSScore
	}
	if e.fingerprints == nil {
		return UnmatchedTLSScore
	}

	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	trust, err := e.fingerprints.TrustByHash(ctx, hash)
	if err != nil {
		logging.L(ctx).Warn("fingerprint lookup failed, treating as unmatched",
			"error", err)
		return UnmatchedTLSScore
	}
	if trust == nil {
		return UnmatchedTLSScore
	}
	return clamp01(*trust)
}

// behavioralResult scores the sample against the user's baseline. A slow
// or failed baseline fetch degrades to the no-baseline neutral result.
func (e *Engine) behavioralResult(ctx context.Context, userID string, sample *behavior.Sample) *anomaly.Result {
	if sample == nil {
		return anomaly.Score(nil, &behavior.Sample{})
	}
	if e.baselines == nil {
		return anomaly.Score(nil, sample)
	}

	ctx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	defer cancel()

	baseline, err := e.baselines.Baseline(ctx, userID)
	if err != nil {
		logging.L(ctx).Warn("baseline fetch failed, scoring without baseline",
			"user_id", userID, "error", err)
		baseline = nil
	}
	return anomaly.Score(baseline, sample)
}

// decisionFor maps an overall score to a verdict. Threshold lower bounds
// are inclusive.
func decisionFor(overall float64, pol policy.Policy) Decision {
	switch {
	case overall >= pol.SilentAuthThreshold:
		return DecisionAllow
	case overall >= pol.BlockThreshold:
		return DecisionStepUp
	default:
		return DecisionBlock
	}
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
