package pages

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/cv-search/internal/client"
	"alfredoptarigan/cv-search/internal/metrics"
)

const visitorCookie = "cvsearch_visitor"

type visitor struct {
	searcher *client.Searcher
	lastSeen time.Time
}

// visitors keeps one Searcher per browser.
type visitors struct {
	api     client.EligibleSearcher
	metrics *metrics.Manager

	mu   sync.Mutex
	byID map[string]*visitor
}

func newVisitors(api client.EligibleSearcher, m *metrics.Manager) *visitors {
	return &visitors{api: api, metrics: m, byID: make(map[string]*visitor)}
}

func (v *visitors) searcher(id string) *client.Searcher {
	v.mu.Lock()
	defer v.mu.Unlock()

	vis, ok := v.byID[id]
	if !ok {
		vis = &visitor{searcher: client.NewSearcher(v.api, v.metrics)}
		v.byID[id] = vis
	}
	vis.lastSeen = time.Now()
	return vis.searcher
}

func (v *visitors) sweep(maxIdle time.Duration) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	dropped := 0
	for id, vis := range v.byID {
		if vis.lastSeen.Before(cutoff) {
			vis.searcher.Cancel()
			delete(v.byID, id)
			dropped++
		}
	}
	return dropped
}

func (v *visitors) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byID)
}

// visitorID returns the visitor cookie, issuing a new one when missing.
func visitorID(c *fiber.Ctx) string {
	if id := c.Cookies(visitorCookie); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}

	id := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     visitorCookie,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	return id
}
