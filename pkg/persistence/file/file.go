// Package file provides a file-based persistence implementation for single-node deployments and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmayes77/clientflow-sub001/pkg/models"
	"github.com/dmayes77/clientflow-sub001/pkg/persistence"
	"github.com/google/uuid"
)

const storeFile = "clientflow.json"

// state is the whole data set, written to disk as one JSON document.
type state struct {
	Tenants      map[string]models.Tenant        `json:"tenants"`
	Contacts     map[string]models.Contact       `json:"contacts"`
	Bookings     map[string]models.Booking       `json:"bookings"`
	Invoices     map[string]models.Invoice       `json:"invoices"`
	Payments     map[string]models.Payment       `json:"payments"`
	Templates    map[string]models.EmailTemplate `json:"email_templates"`
	Tags         map[string]models.Tag           `json:"tags"`
	Associations []models.TagAssociation         `json:"tag_associations"`
	Workflows    map[string]models.Workflow      `json:"workflows"`
	Runs         map[string]models.WorkflowRun   `json:"workflow_runs"`
}

func newState() *state {
	return &state{
		Tenants:   map[string]models.Tenant{},
		Contacts:  map[string]models.Contact{},
		Bookings:  map[string]models.Booking{},
		Invoices:  map[string]models.Invoice{},
		Payments:  map[string]models.Payment{},
		Templates: map[string]models.EmailTemplate{},
		Tags:      map[string]models.Tag{},
		Workflows: map[string]models.Workflow{},
		Runs:      map[string]models.WorkflowRun{},
	}
}

// store guards the state with one mutex. Every mutation is flushed before the lock is released,
// which makes compare-and-swap operations atomic within the process.
type store struct {
	mu   sync.Mutex
	path string
	data *state
}

func (s *store) read(fn func(data *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.data)
}

func (s *store) write(fn func(data *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(s.data)
	if err != nil {
		return err
	}

	return s.flush()
}

func (s *store) flush() error {
	content, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp := s.path + ".tmp"

	err = os.WriteFile(tmp, content, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}

	err = os.Rename(tmp, s.path)
	if err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}

	return nil
}

func (s *store) load() error {
	content, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read store: %w", err)
	}

	loaded := newState()

	err = json.Unmarshal(content, loaded)
	if err != nil {
		return fmt.Errorf("failed to parse store %s: %w", s.path, err)
	}

	// maps absent from older files decode as nil
	fresh := newState()
	if loaded.Tenants == nil {
		loaded.Tenants = fresh.Tenants
	}

	if loaded.Contacts == nil {
		loaded.Contacts = fresh.Contacts
	}

	if loaded.Bookings == nil {
		loaded.Bookings = fresh.Bookings
	}

	if loaded.Invoices == nil {
		loaded.Invoices = fresh.Invoices
	}

	if loaded.Payments == nil {
		loaded.Payments = fresh.Payments
	}

	if loaded.Templates == nil {
		loaded.Templates = fresh.Templates
	}

	if loaded.Tags == nil {
		loaded.Tags = fresh.Tags
	}

	if loaded.Workflows == nil {
		loaded.Workflows = fresh.Workflows
	}

	if loaded.Runs == nil {
		loaded.Runs = fresh.Runs
	}

	s.data = loaded

	return nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate ID: %w", err)
	}

	return id.String(), nil
}

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root  string
	store *store

	tags         *TagRepository
	associations *TagAssociationRepository
	workflows    *WorkflowRepository
	runs         *WorkflowRunRepository
	entities     *EntityRepository
	templates    *EmailTemplateRepository
}

// NewPersistence opens or creates the store under root. A file:// prefix is accepted.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	err := os.MkdirAll(cleanRoot, 0o750)
	if err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &store{path: filepath.Join(cleanRoot, storeFile), data: newState()}

	err = s.load()
	if err != nil {
		return nil, err
	}

	return &Persistence{
		root:         cleanRoot,
		store:        s,
		tags:         &TagRepository{store: s},
		associations: &TagAssociationRepository{store: s},
		workflows:    &WorkflowRepository{store: s},
		runs:         &WorkflowRunRepository{store: s},
		entities:     &EntityRepository{store: s},
		templates:    &EmailTemplateRepository{store: s},
	}, nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) TagRepository() persistence.TagRepository {
	return fp.tags
}

func (fp *Persistence) TagAssociationRepository() persistence.TagAssociationRepository {
	return fp.associations
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflows
}

func (fp *Persistence) WorkflowRunRepository() persistence.WorkflowRunRepository {
	return fp.runs
}

func (fp *Persistence) EntityRepository() persistence.EntityRepository {
	return fp.entities
}

func (fp *Persistence) EmailTemplateRepository() persistence.EmailTemplateRepository {
	return fp.templates
}

func now() time.Time {
	return time.Now().UTC()
}
