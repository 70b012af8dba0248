package ticket

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact is a rendered ticket document, addressable by the order id it
// was rendered for. Repeated renders for the same order overwrite the same
// path, so rendering is idempotent.
type Artifact struct {
	OrderID  string
	Filename string
	Path     string
	Data     []byte
}

// Store keeps ticket artifacts on the local filesystem, one file per order.
type Store struct {
	Dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create ticket dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) Filename(orderID string) string {
	return fmt.Sprintf("ticket-%s.pdf", orderID)
}

func (s *Store) Path(orderID string) string {
	return filepath.Join(s.Dir, s.Filename(orderID))
}

// Write stores the document for an order, replacing any previous copy.
func (s *Store) Write(orderID string, data []byte) (Artifact, error) {
	path := s.Path(orderID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Artifact{}, &RenderError{Err: fmt.Errorf("write artifact: %w", err)}
	}
	return Artifact{
		OrderID:  orderID,
		Filename: s.Filename(orderID),
		Path:     path,
		Data:     data,
	}, nil
}

func (s *Store) Read(orderID string) ([]byte, error) {
	return os.ReadFile(s.Path(orderID))
}

func (s *Store) Exists(orderID string) bool {
	_, err := os.Stat(s.Path(orderID))
	return err == nil
}

// Discard removes the local copy of an artifact. Callers must only do this
// after the transport has confirmed acceptance of the ticket; discarding a
// missing file is not an error.
func (s *Store) Discard(orderID string) error {
	err := os.Remove(s.Path(orderID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
