package bootstrap

import (
	"os"
	"path/filepath"
)

// Template file names seeded into every agent workspace. Their contents
// are assembled into the persona system prompt by the caller (loop.go) —
// persona prompt assembly itself is out of scope here; this package only
// owns seeding and loading the files.
const (
	AgentsFile    = "AGENTS.md"
	SoulFile      = "SOUL.md"
	ToolsFile     = "TOOLS.md"
	IdentityFile  = "IDENTITY.md"
	UserFile      = "USER.md"
	HeartbeatFile = "HEARTBEAT.md"
	BootstrapFile = "BOOTSTRAP.md"
)

// ContextFile is one persona context document and its resolved content.
type ContextFile struct {
	Path    string
	Content string
}

// LoadFromWorkspace reads the seeded template files (plus BOOTSTRAP.md, if
// present) out of workspaceDir, skipping any that are missing or empty.
// This is the standalone, file-backed counterpart to a DB-backed loader —
// no managed-mode per-tenant override layer here, just what's on disk.
func LoadFromWorkspace(workspaceDir string) []ContextFile {
	var files []ContextFile
	for _, name := range append(append([]string{}, templateFiles...), BootstrapFile) {
		data, err := os.ReadFile(filepath.Join(workspaceDir, name))
		if err != nil || len(data) == 0 {
			continue
		}
		files = append(files, ContextFile{Path: name, Content: string(data)})
	}
	return files
}
