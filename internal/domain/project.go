package domain

import (
	"strings"
	"time"
)

const maxProjectNameLength = 255

// Project groups tasks under a single owner. Deleting a project deletes its tasks.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewProject creates an unsaved Project owned by ownerID.
func NewProject(ownerID int64, name string, description *string) (*Project, error) {
	p := &Project{
		Name:        strings.TrimSpace(name),
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks that the project has a name and an owner.
func (p *Project) Validate() error {
	if p.Name == "" {
		return NewValidationError("name", "is required", nil)
	}
	if len(p.Name) > maxProjectNameLength {
		return NewValidationError("name", "is too long", nil)
	}
	if p.OwnerID <= 0 {
		return NewValidationError("owner_id", "is required", ErrInvalidID)
	}
	return nil
}

// ProjectPatch carries a partial project update. A nil or blank Name keeps the
// current name; Description follows Optional semantics.
type ProjectPatch struct {
	Name        *string
	Description Optional[string]
}

// Apply mutates p with the fields present in the patch.
func (patch ProjectPatch) Apply(p *Project) error {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description.Set {
		p.Description = patch.Description.Ptr()
	}
	return p.Validate()
}

// ProjectWithTasks is a project together with its tasks ordered by creation.
type ProjectWithTasks struct {
	Project
	Tasks []Task `json:"tasks"`
}
