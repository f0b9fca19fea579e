package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	agentsDir  = "agents"
	dbFile     = "memory.db"
	outputsDir = "outputs"
	exportFile = "memory_export.md"
)

// ErrInvalidAgentID is returned for agent ids that cannot name a directory.
var ErrInvalidAgentID = errors.New("invalid agent id")

// AgentDir is the on-disk home of one agent's memory.
type AgentDir struct {
	ID   string
	Path string
}

// ValidateAgentID rejects ids that are empty or would escape the agents
// directory.
func ValidateAgentID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty", ErrInvalidAgentID)
	case id == "." || id == "..":
		return fmt.Errorf("%w: %q", ErrInvalidAgentID, id)
	case strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidAgentID, id)
	}
	return nil
}

// Agent returns the directory of agentID under root, creating it if needed.
func (m *Manager) Agent(root, agentID string) (*AgentDir, error) {
	if err := ValidateAgentID(agentID); err != nil {
		return nil, err
	}

	dir := filepath.Join(root, agentsDir, agentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating agent directory %s: %w", dir, err)
	}

	return &AgentDir{ID: agentID, Path: dir}, nil
}

// Agents lists the ids of every agent directory under root.
func (m *Manager) Agents(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, agentsDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading agents directory: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// DBPath is the agent's SQLite database file.
func (a *AgentDir) DBPath() string {
	return filepath.Join(a.Path, dbFile)
}

// ExportPath is the default Markdown export destination.
func (a *AgentDir) ExportPath() string {
	return filepath.Join(a.Path, outputsDir, exportFile)
}

// ReadLegacy returns the trimmed content of a Markdown file kept in the agent
// directory by older installs (SOUL.md, USER.md, ...). A missing file
// reports ok == false.
func (a *AgentDir) ReadLegacy(name string) (content string, ok bool, err error) {
	data, err := os.ReadFile(filepath.Join(a.Path, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading legacy file %s: %w", name, err)
	}

	return strings.TrimSpace(string(data)), true, nil
}
