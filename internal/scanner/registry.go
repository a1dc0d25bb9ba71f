package scanner

import (
	"sync"

	"github.com/google/uuid"

	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
)

// Registry tracks live scan sessions by ID. Each session belongs to the
// teacher who started it; only that teacher (or an admin) may touch it.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Controller
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Controller)}
}

// Add stores a controller and returns its session ID.
func (r *Registry) Add(controller *Controller) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = controller
	r.mu.Unlock()
	return id
}

// Get returns the session after checking the caller may access it.
func (r *Registry) Get(sessionID, teacherID string, isAdmin bool) (*Controller, error) {
	r.mu.Lock()
	controller, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scan session not found")
	}
	if !isAdmin && controller.TeacherID() != teacherID {
		return nil, appErrors.ErrForbidden
	}
	return controller, nil
}

// Remove stops the session and drops it from the registry.
func (r *Registry) Remove(sessionID, teacherID string, isAdmin bool) error {
	controller, err := r.Get(sessionID, teacherID, isAdmin)
	if err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	return controller.Stop()
}
