package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNoDeployment is returned when a contract has no deployment record.
var ErrNoDeployment = errors.New("deploy: no deployment record")

// Record is a persisted deployment.
type Record struct {
	Contract    string         `json:"contract"`
	Address     common.Address `json:"address"`
	TxHash      common.Hash    `json:"transactionHash"`
	BlockNumber uint64         `json:"blockNumber"`
	Args        []string       `json:"args"`
	DeployedAt  time.Time      `json:"deployedAt"`
}

// Store keeps one JSON record per contract under
// <root>/<network>/<Contract>.json.
type Store struct {
	dir string
}

// NewStore creates a store for one network.
func NewStore(root, networkName string) *Store {
	return &Store{dir: filepath.Join(root, networkName)}
}

// Dir returns the network's record directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes rec, replacing any earlier record for the same contract.
func (s *Store) Save(rec *Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create deployments dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", rec.Contract, err)
	}
	tmp := s.path(rec.Contract) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s record: %w", rec.Contract, err)
	}
	if err := os.Rename(tmp, s.path(rec.Contract)); err != nil {
		return fmt.Errorf("write %s record: %w", rec.Contract, err)
	}
	return nil
}

// Load reads the record for contract.
func (s *Store) Load(contract string) (*Record, error) {
	data, err := os.ReadFile(s.path(contract))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoDeployment, contract, s.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s record: %w", contract, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse %s record: %w", contract, err)
	}
	return &rec, nil
}

// Address returns the deployed address of contract.
func (s *Store) Address(contract string) (common.Address, error) {
	rec, err := s.Load(contract)
	if err != nil {
		return common.Address{}, err
	}
	return rec.Address, nil
}

func (s *Store) path(contract string) string {
	return filepath.Join(s.dir, contract+".json")
}
