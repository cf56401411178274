package draft

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"order-board/internal/ordersync/domain/dto"
)

// ErrNoDraft is returned by Load when nothing was stashed.
var ErrNoDraft = errors.New("no draft saved")

// Store stashes one pending walk-in order across an external redirect (the
// payment flow leaves and re-enters the app). One file, one draft; it is not
// part of the sync cache and survives nothing beyond its explicit Clear.
type Store struct {
	path string
}

// NewStore places the draft file under dir, or the user cache dir when dir
// is empty.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolve cache dir: %w", err)
		}
		dir = filepath.Join(base, "order-board")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}
	return &Store{path: filepath.Join(dir, "draft.json")}, nil
}

func (s *Store) Save(order dto.CreateOrderRequest) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *Store) Load() (dto.CreateOrderRequest, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return dto.CreateOrderRequest{}, ErrNoDraft
		}
		return dto.CreateOrderRequest{}, err
	}
	var order dto.CreateOrderRequest
	if err := json.Unmarshal(data, &order); err != nil {
		return dto.CreateOrderRequest{}, fmt.Errorf("corrupt draft: %w", err)
	}
	return order, nil
}

func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
