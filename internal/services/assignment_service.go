// Package services – AssignmentService
//
// AssignmentService picks the best technician for an alert using a weighted
// heuristic over the technician roster:
//
//   - specialization: +40 when the alert description names a domain the
//     technician is specialized in, +10 otherwise
//   - proximity: max(0, 30 - distance_km * 3)
//   - experience: min(20, experience_years * 3)
//   - success rate: (success_rate - 80) / 2, negative below 80
//
// The total is rounded to the nearest integer. Only technicians whose
// availability is "available" are considered, and ties resolve to the first
// highest-scoring candidate in roster order, which keeps repeated runs over
// the same roster deterministic. Keyword matching is case and accent
// insensitive so "Electrique" and "électrique" resolve identically.
package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/henrimbassi12/gulfmaintain-backend/internal/domain"
	"github.com/henrimbassi12/gulfmaintain-backend/internal/repo"
)

// keywordRule maps a description keyword to the specialization it calls for.
// Rules are scanned in order and the first keyword found in the description
// decides the wanted specialization.
type keywordRule struct {
	keyword        string
	specialization string
}

// keywordRules is the fixed routing table between failure vocabulary and
// technician specializations. Keywords are stored unaccented lowercase.
var keywordRules = []keywordRule{
	{"electrique", "Électricité"},
	{"electricite", "Électricité"},
	{"court-circuit", "Électricité"},
	{"disjoncteur", "Électricité"},
	{"surchauffe", "Climatisation"},
	{"climatisation", "Climatisation"},
	{"ventilation", "Climatisation"},
	{"compresseur", "Réfrigération"},
	{"frigo", "Réfrigération"},
	{"refrigerat", "Réfrigération"},
	{"fuite", "Réfrigération"},
	{"givrage", "Réfrigération"},
	{"thermostat", "Réfrigération"},
}

// fold lowercases s and strips combining accents, so matching is insensitive
// to case and diacritics.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// wantedSpecialization returns the specialization the description calls for,
// or "" when no keyword matches.
func wantedSpecialization(description string) string {
	folded := fold(description)
	for _, r := range keywordRules {
		if strings.Contains(folded, r.keyword) {
			return r.specialization
		}
	}
	return ""
}

// Candidate is one scored technician.
type Candidate struct {
	Technician domain.Technician `json:"technician"`
	Score      float64           `json:"score"`
}

// AssignmentService scores technicians against alerts and performs
// auto-assignment.
type AssignmentService struct {
	DB       *gorm.DB
	Notifier Notifier
	Log      zerolog.Logger
}

// NewAssignmentService wires an AssignmentService.
func NewAssignmentService(db *gorm.DB, notifier Notifier, log zerolog.Logger) *AssignmentService {
	return &AssignmentService{
		DB:       db,
		Notifier: notifier,
		Log:      log.With().Str("component", "assignment").Logger(),
	}
}

// scoreOne computes the rounded heuristic score of t for the wanted
// specialization.
func scoreOne(t domain.Technician, wanted string) float64 {
	score := 10.0
	if wanted != "" && hasSpecialization(t, wanted) {
		score = 40
	}
	score += math.Max(0, 30-t.DistanceKM*3)
	score += math.Min(20, t.ExperienceYears*3)
	score += (t.SuccessRate - 80) / 2
	return math.Round(score)
}

// hasSpecialization reports whether t lists wanted among its specializations,
// compared accent and case insensitively.
func hasSpecialization(t domain.Technician, wanted string) bool {
	w := fold(wanted)
	for _, s := range t.Specializations {
		if fold(s) == w {
			return true
		}
	}
	return false
}

// ScoreCandidates returns every available technician with its score for the
// given alert description, in roster order. The caller inspects the ranking;
// nothing is persisted.
func (s *AssignmentService) ScoreCandidates(ctx context.Context, description string) ([]Candidate, error) {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "ScoreCandidates")
	defer span.End()

	techs, err := repo.ListTechnicians(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	wanted := wantedSpecialization(description)

	var out []Candidate
	for _, t := range techs {
		if t.Availability != domain.AvailabilityAvailable {
			continue
		}
		out = append(out, Candidate{Technician: t, Score: scoreOne(t, wanted)})
	}
	return out, nil
}

// pickBest returns the first highest-scoring candidate, or nil when the slice
// is empty.
func pickBest(candidates []Candidate) *Candidate {
	var best *Candidate
	for i := range candidates {
		if best == nil || candidates[i].Score > best.Score {
			best = &candidates[i]
		}
	}
	return best
}

// AutoAssign selects the best available technician for the alert and records
// the assignment. When no technician is available the alert stays open, a
// warning notification is emitted, and ErrNoTechnicianAvailable is returned.
func (s *AssignmentService) AutoAssign(ctx context.Context, alertID string) (*domain.Technician, error) {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "AutoAssign",
		trace.WithAttributes(attribute.String("alert.id", alertID)),
	)
	defer span.End()

	alert, err := repo.GetAlert(ctx, s.DB, alertID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	if alert.Status != domain.AlertOpen {
		return nil, ErrAlertNotOpen
	}

	candidates, err := s.ScoreCandidates(ctx, alert.Description)
	if err != nil {
		return nil, err
	}
	best := pickBest(candidates)
	if best == nil {
		s.Log.Warn().Str("alert_id", alertID).Msg("no available technician for alert")
		s.Notifier.Notify(Notification{
			Level:   NoticeWarning,
			Message: "Aucun technicien disponible pour cette alerte",
		})
		return nil, ErrNoTechnicianAvailable
	}

	if err := repo.AssignAlert(ctx, s.DB, alertID, best.Technician.Name); err != nil {
		return nil, err
	}
	s.Log.Info().
		Str("alert_id", alertID).
		Str("technician", best.Technician.Name).
		Float64("score", best.Score).
		Msg("alert auto-assigned")
	s.Notifier.Notify(Notification{
		Level:   NoticeInfo,
		Message: "Alerte assignée à " + best.Technician.Name,
	})
	return &best.Technician, nil
}
