// Command seed populates a running silentauth instance with synthetic
// demo data: registered users, behavioral history, known devices and TLS
// fingerprints, plus a handful of assessments to light up the dashboard.
//
// Usage:
//
//	go run ./cmd/seed -url http://localhost:8080 -users 20
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

type seeder struct {
	baseURL string
	client  *http.Client
	faker   *gofakeit.Faker
}

// persona is a user's "true" behavioral signature. Samples are drawn
// around these means so the baseline builder has something to learn.
type persona struct {
	typingSpeed   float64
	dwellTime     float64
	flightTime    float64
	mouseVelocity float64
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the silentauth server")
	users := flag.Int("users", 10, "number of synthetic users")
	samples := flag.Int("samples", 8, "behavioral samples per user")
	assess := flag.Bool("assess", true, "run an assessment per user after seeding")
	flag.Parse()

	s := &seeder{
		baseURL: *baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		faker:   gofakeit.New(0),
	}

	log.Printf("seeding %d users against %s", *users, s.baseURL)

	for i := 0; i < *users; i++ {
		if err := s.seedUser(*samples, *assess); err != nil {
			log.Printf("user %d: %v", i, err)
		}
	}

	log.Println("done")
}

func (s *seeder) seedUser(sampleCount int, assess bool) error {
	username := s.faker.Username()

	var reg struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	err := s.post("/v1/users/register", map[string]any{
		"username": username,
		"email":    s.faker.Email(),
		"password": s.faker.Password(true, true, true, false, false, 16),
	}, &reg)
	if err != nil {
		return fmt.Errorf("register %s: %w", username, err)
	}
	userID := reg.User.ID

	p := persona{
		typingSpeed:   60 + rand.Float64()*60,
		dwellTime:     80 + rand.Float64()*60,
		flightTime:    40 + rand.Float64()*40,
		mouseVelocity: 200 + rand.Float64()*400,
	}

	batch := make([]map[string]any, 0, sampleCount)
	for i := 0; i < sampleCount; i++ {
		batch = append(batch, p.sample())
	}
	err = s.post("/v1/behavior/samples", map[string]any{
		"userId":  userID,
		"samples": batch,
	}, nil)
	if err != nil {
		return fmt.Errorf("samples for %s: %w", username, err)
	}

	fingerprint := s.faker.UUID()
	err = s.post("/v1/devices/observe", map[string]any{
		"userId":      userID,
		"fingerprint": fingerprint,
		"userAgent":   s.faker.UserAgent(),
	}, nil)
	if err != nil {
		return fmt.Errorf("device for %s: %w", username, err)
	}

	ja3 := hex32()
	if err := s.post("/v1/tls/observe", map[string]any{"ja3": ja3}, nil); err != nil {
		return fmt.Errorf("tls for %s: %w", username, err)
	}

	if assess {
		err = s.post("/v1/risk/assess", map[string]any{
			"userId":         userID,
			"deviceId":       fingerprint,
			"tlsFingerprint": ja3,
			"sample":         p.sample(),
		}, nil)
		if err != nil {
			return fmt.Errorf("assess %s: %w", username, err)
		}
	}

	log.Printf("seeded %s (%s)", username, userID)
	return nil
}

// sample draws one observation around the persona's means with mild noise.
func (p persona) sample() map[string]any {
	jitter := func(mean, spread float64) float64 {
		return mean + (rand.Float64()*2-1)*spread
	}
	return map[string]any{
		"typingSpeed":       jitter(p.typingSpeed, 6),
		"dwellTime":         jitter(p.dwellTime, 8),
		"flightTime":        jitter(p.flightTime, 5),
		"mouseVelocity":     jitter(p.mouseVelocity, 40),
		"straightLineRatio": jitter(0.7, 0.1),
	}
}

// hex32 produces an MD5-shaped hex string, the usual JA3 hash format.
func hex32() string {
	return fmt.Sprintf("%016x%016x", rand.Uint64(), rand.Uint64())
}

func (s *seeder) post(path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := s.client.Post(s.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		var errBody map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("%s returned %d: %v", path, resp.StatusCode, errBody)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
