// package models defines the data model for the playlist builder
package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
// Implementations include [BuildRun].
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Store is the single port to durable key-value storage.
//
// Session tokens, the PKCE verifier, the cached profile and the artist working set are all persisted through it.
type Store interface {
	Get(key string) (value string, ok bool, err error) // Get returns the value for key and whether it was present
	Set(key, value string) error                       // Set inserts or replaces the value for key
	Delete(key string) error                           // Delete removes key; missing keys are not an error
	Clear() error                                      // Clear removes every key
}
