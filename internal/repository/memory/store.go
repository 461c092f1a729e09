// Package memory provides an in-process implementation of the repository
// interfaces. Admission state (invitations and their guests) is partitioned
// across a sharded lock map keyed by invitation id, so contention on one
// invitation never serializes admissions to another. It backs the test suite
// and the no-database development mode.
package memory

import (
	"hash/fnv"
	"sync"

	"github.com/eventra/eventra-api/internal/models"
)

const shardCount = 64

type shard struct {
	mu          sync.Mutex
	invitations map[string]*models.Invitation
	guests      map[string]map[string]*models.Guest
}

type Store struct {
	mu            sync.RWMutex
	orders        map[string]*models.Order
	users         map[string]*models.User
	usersByEmail  map[string]string
	payments      map[string]models.PaymentEvent
	plans         map[string]models.Plan
	templates     map[string]models.Template
	notifications map[string]*models.Notification
	slugs         map[string]string

	shards [shardCount]*shard
}

func NewStore() *Store {
	s := &Store{
		orders:        make(map[string]*models.Order),
		users:         make(map[string]*models.User),
		usersByEmail:  make(map[string]string),
		payments:      make(map[string]models.PaymentEvent),
		plans:         make(map[string]models.Plan),
		templates:     make(map[string]models.Template),
		notifications: make(map[string]*models.Notification),
		slugs:         make(map[string]string),
	}
	for i := range s.shards {
		s.shards[i] = &shard{
			invitations: make(map[string]*models.Invitation),
			guests:      make(map[string]map[string]*models.Guest),
		}
	}
	s.seedCatalog()
	return s
}

func (s *Store) shardFor(invitationID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(invitationID))
	return s.shards[h.Sum32()%shardCount]
}

// seedCatalog mirrors the reference data the migrations seed in Postgres.
func (s *Store) seedCatalog() {
	for _, plan := range []models.Plan{
		{Code: "basic", Name: "Basic", Tier: models.TierBasic, BaseRegularLimit: 50, BaseTestLimit: 5, ValidityHours: 360},
		{Code: "premium", Name: "Premium", Tier: models.TierPremium, BaseRegularLimit: 100, BaseTestLimit: 10, ValidityHours: 360},
		{Code: "luxury", Name: "Luxury", Tier: models.TierLuxury, BaseRegularLimit: 300, BaseTestLimit: 30, ValidityHours: 360},
	} {
		s.plans[plan.Code] = plan
	}
	for _, tmpl := range []models.Template{
		{ID: "tpl-classic", Name: "Classic", Tier: models.TierBasic},
		{ID: "tpl-botanical", Name: "Botanical", Tier: models.TierPremium},
		{ID: "tpl-gilded", Name: "Gilded", Tier: models.TierLuxury},
	} {
		s.templates[tmpl.ID] = tmpl
	}
}

func cloneOrder(o *models.Order) models.Order {
	out := *o
	out.AdminNotes = append([]string(nil), o.AdminNotes...)
	if o.TemplateID != nil {
		v := *o.TemplateID
		out.TemplateID = &v
	}
	if o.DecidedBy != nil {
		v := *o.DecidedBy
		out.DecidedBy = &v
	}
	if o.DecidedAt != nil {
		v := *o.DecidedAt
		out.DecidedAt = &v
	}
	return out
}

func cloneInvitation(i *models.Invitation) models.Invitation {
	return *i
}

func cloneGuest(g *models.Guest) models.Guest {
	return *g
}
