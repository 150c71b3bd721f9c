// Package contracts provides go-ethereum bindings for the collection's
// contracts and loads their compiled artifacts.
package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Artifact is a compiled contract as emitted by hardhat or foundry.
type Artifact struct {
	ContractName string          `json:"contractName,omitempty"`
	SourceName   string          `json:"sourceName,omitempty"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     Bytecode        `json:"bytecode"`
}

// QualifiedName returns "<source>:<contract>" as compilers and explorers
// expect it.
func (a *Artifact) QualifiedName() string {
	if a.SourceName == "" {
		return a.ContractName
	}
	return a.SourceName + ":" + a.ContractName
}

// Bytecode accepts both the hardhat form ("0x...") and the foundry form
// ({"object": "0x..."}).
type Bytecode struct {
	Object string `json:"object"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bytecode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &b.Object)
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	b.Object = obj.Object
	return nil
}

// Bytes decodes the bytecode.
func (a *Artifact) Bytes() ([]byte, error) {
	code := strings.TrimSpace(a.Bytecode.Object)
	if code == "" || code == "0x" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyBytecode, a.ContractName)
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	out, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("decode %s bytecode: %w", a.ContractName, err)
	}
	return out, nil
}

// ParsedABI returns the artifact's ABI, falling back to the embedded ABI for
// known contracts when the artifact carries none.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	if len(a.ABI) == 0 || string(a.ABI) == "null" {
		return ParseABI(a.ContractName)
	}
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse %s ABI: %w", a.ContractName, err)
	}
	return parsed, nil
}

// ArtifactStore loads artifacts from a build output directory.
type ArtifactStore struct {
	dir string
}

// NewArtifactStore creates a store rooted at dir (hardhat "artifacts" or
// foundry "out").
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// Load finds <name>.json anywhere under the store directory and parses it.
func (s *ArtifactStore) Load(name string) (*Artifact, error) {
	path, err := s.find(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if a.ContractName == "" {
		a.ContractName = name
	}
	return &a, nil
}

func (s *ArtifactStore) find(name string) (string, error) {
	direct := filepath.Join(s.dir, name+".json")
	if _, err := os.Stat(direct); err == nil {
		return direct, nil
	}

	errFound := errors.New("found")
	var match string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// build-info holds compiler input, not artifacts
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == name+".json" {
			match = path
			return errFound
		}
		return nil
	})
	if match != "" {
		return match, nil
	}
	if err != nil && !errors.Is(err, errFound) {
		return "", fmt.Errorf("search artifacts in %s: %w", s.dir, err)
	}
	return "", fmt.Errorf("%w: %s in %s", ErrArtifactNotFound, name, s.dir)
}

// BuildInfo is the compiler input and version recorded by hardhat for a
// compilation job.
type BuildInfo struct {
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
}

// CompilerVersion returns the version in the "v0.8.7+commit.e28d00a7" form.
func (b *BuildInfo) CompilerVersion() string {
	if strings.HasPrefix(b.SolcLongVersion, "v") {
		return b.SolcLongVersion
	}
	return "v" + b.SolcLongVersion
}

// BuildInfo finds the build-info file whose input contains sourceName.
func (s *ArtifactStore) BuildInfo(sourceName string) (*BuildInfo, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "build-info", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list build info: %w", err)
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var info BuildInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		var input struct {
			Sources map[string]json.RawMessage `json:"sources"`
		}
		if err := json.Unmarshal(info.Input, &input); err != nil {
			continue
		}
		if _, ok := input.Sources[sourceName]; ok {
			return &info, nil
		}
	}
	return nil, fmt.Errorf("%w: build info for %s", ErrArtifactNotFound, sourceName)
}
