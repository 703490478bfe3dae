package businessflow

import (
	"context"
	"errors"
	"sync"

	"github.com/amirphl/rotalink/app/services"
	"github.com/amirphl/rotalink/models"
	"github.com/amirphl/rotalink/repository"
	"github.com/google/uuid"
)

// memoryStore is an in-memory AssignmentStore whose transactions are serialized by one mutex
// and rolled back by restoring a snapshot.
type memoryStore struct {
	mu          sync.Mutex
	campaigns   map[string]*models.Campaign
	assignments []*models.OperatorAssignment
	inactive    map[uint]bool
	visits      []*models.Visit

	failApply error
	nextID    uint
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		campaigns: map[string]*models.Campaign{},
		inactive:  map[uint]bool{},
	}
}

func (s *memoryStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) addCampaign(slug string) *models.Campaign {
	c := &models.Campaign{ID: s.id(), UUID: uuid.New(), Slug: slug, Name: slug}
	s.campaigns[slug] = c
	return c
}

// assign adds an assignment for a fresh operator whose identity is name
func (s *memoryStore) assign(c *models.Campaign, name string, grade int) *models.OperatorAssignment {
	a := &models.OperatorAssignment{
		CampaignOperator: models.CampaignOperator{
			ID:         s.id(),
			UUID:       uuid.New(),
			CampaignID: c.ID,
			OperatorID: s.id(),
			Grade:      grade,
		},
		OperatorUUID: uuid.New(),
		Identity:     name,
		OperatorName: name,
	}
	s.assignments = append(s.assignments, a)
	return a
}

func (s *memoryStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	handles := make([]int, len(s.assignments))
	for i, a := range s.assignments {
		handles[i] = a.Handle
	}
	visits := len(s.visits)

	if err := fn(ctx); err != nil {
		for i, a := range s.assignments {
			a.Handle = handles[i]
		}
		s.visits = s.visits[:visits]
		return err
	}
	return nil
}

func (s *memoryStore) LockCampaignBySlug(_ context.Context, slug string) (*models.Campaign, error) {
	c, ok := s.campaigns[slug]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memoryStore) ListActiveBySlug(_ context.Context, slug string) ([]*models.OperatorAssignment, error) {
	c, ok := s.campaigns[slug]
	if !ok {
		return nil, nil
	}
	var out []*models.OperatorAssignment
	for _, a := range s.assignments {
		if a.CampaignID == c.ID && !s.inactive[a.OperatorID] {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memoryStore) ApplyRoutingOutcome(_ context.Context, campaignID, assignmentID uint, reset bool, visit *models.Visit) error {
	var target *models.OperatorAssignment
	for _, a := range s.assignments {
		if a.ID == assignmentID && a.CampaignID == campaignID {
			target = a
		}
	}
	if target == nil {
		return repository.ErrStaleAssignment
	}
	if err := target.Advance(); err != nil {
		return errors.Join(repository.ErrStaleAssignment, err)
	}
	if reset {
		for _, a := range s.assignments {
			if a.CampaignID == campaignID {
				a.Reset()
			}
		}
	}
	s.visits = append(s.visits, visit)
	return s.failApply
}

func (s *memoryStore) handles() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]int{}
	for _, a := range s.assignments {
		out[a.Identity] = a.Handle
	}
	return out
}

func (s *memoryStore) visitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visits)
}

// fixedGeo resolves every address to the same location
type fixedGeo struct {
	loc services.GeoLocation
}

func (g fixedGeo) Resolve(ctx context.Context, _ string) services.GeoLocation {
	if ctx.Err() != nil {
		return services.GeoLocation{}
	}
	return g.loc
}

// recordingPublisher keeps published events in memory
type recordingPublisher struct {
	mu     sync.Mutex
	events []services.VisitEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e services.VisitEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
