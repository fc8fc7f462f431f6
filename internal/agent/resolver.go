package agent

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextlevelbuilder/goclaw/internal/bootstrap"
	"github.com/nextlevelbuilder/goclaw/internal/bus"
	"github.com/nextlevelbuilder/goclaw/internal/config"
	"github.com/nextlevelbuilder/goclaw/internal/providers"
	"github.com/nextlevelbuilder/goclaw/internal/skills"
	"github.com/nextlevelbuilder/goclaw/internal/store"
	"github.com/nextlevelbuilder/goclaw/internal/tools"
	"github.com/nextlevelbuilder/goclaw/internal/tracing"
)

// ConfigResolverDeps holds the shared dependencies every persona's Loop is
// built from. Each persona differs only in its config.AgentSpec
// (workspace, provider, model, per-persona tool policy); everything below
// is shared infrastructure.
type ConfigResolverDeps struct {
	Config      *config.Config
	ProviderReg *providers.Registry
	Bus         bus.EventPublisher
	Sessions    store.SessionStore
	Tools       *tools.Registry
	Delegate    *tools.DelegateManager // nil = "Task" tool disabled for every persona
	ToolPolicy  *tools.PolicyEngine
	Skills      *skills.Loader
	HasMemory   bool
	OnEvent     func(AgentEvent)
	TraceCollector *tracing.Collector

	InjectionAction string
	MaxMessageChars int
}

// NewConfigResolver builds a ResolverFunc that constructs one Loop per
// persona from config.Agents.List, falling back to config.Agents.Defaults
// for anything a persona doesn't override. This is the standalone,
// single-tenant replacement for a DB-backed managed-mode resolver: personas
// live in config.json, not a per-tenant Postgres table.
func NewConfigResolver(deps ConfigResolverDeps) ResolverFunc {
	return func(agentKey string) (Agent, error) {
		spec, ok := deps.Config.Agents.List[agentKey]
		if !ok {
			if agentKey != "" && agentKey != "default" {
				return nil, fmt.Errorf("agent not found: %s", agentKey)
			}
			spec = config.AgentSpec{} // use pure defaults for the implicit "default" persona
		}
		defaults := deps.Config.Agents.Defaults

		provider, err := deps.ProviderReg.Get(firstNonEmpty(spec.Provider, defaults.Provider))
		if err != nil {
			names := deps.ProviderReg.List()
			if len(names) == 0 {
				return nil, fmt.Errorf("no providers configured for agent %s", agentKey)
			}
			provider, _ = deps.ProviderReg.Get(names[0])
			slog.Warn("agent provider not found, using fallback", "agent", agentKey, "using", names[0])
		}
		if provider == nil {
			return nil, fmt.Errorf("no provider available for agent %s", agentKey)
		}

		workspace := firstNonEmpty(spec.Workspace, defaults.Workspace)
		if workspace != "" {
			workspace = config.ExpandHome(workspace)
			if !filepath.IsAbs(workspace) {
				workspace, _ = filepath.Abs(workspace)
			}
		}
		if workspace == "" {
			workspace, _ = os.Getwd()
		}
		if _, err := bootstrap.EnsureWorkspaceFiles(workspace); err != nil {
			slog.Warn("failed to seed workspace files", "workspace", workspace, "agent", agentKey, "error", err)
		}
		contextFiles := bootstrap.LoadFromWorkspace(workspace)

		siblings := siblingPersonaKeys(deps.Config, agentKey)
		if len(siblings) > 0 {
			contextFiles = append(contextFiles, bootstrap.ContextFile{
				Path:    "DELEGATION.md",
				Content: buildDelegateAgentsMD(siblings),
			})
		} else {
			contextFiles = append(contextFiles, bootstrap.ContextFile{
				Path:    "AVAILABILITY.md",
				Content: "You have NO delegation targets. Do not use the Task tool.",
			})
		}

		contextWindow := spec.ContextWindow
		if contextWindow <= 0 {
			contextWindow = defaults.ContextWindow
		}
		if contextWindow <= 0 {
			contextWindow = 200000
		}
		maxIter := spec.MaxToolIterations
		if maxIter <= 0 {
			maxIter = defaults.MaxToolIterations
		}
		if maxIter <= 0 {
			maxIter = 20
		}

		compactionCfg := defaults.Compaction
		contextPruningCfg := defaults.ContextPruning
		sandboxEnabled, sandboxDir, sandboxAccess := false, "", "none"
		if sb := firstSandbox(spec.Sandbox, defaults.Sandbox); sb != nil && sb.Mode != "" && sb.Mode != "off" {
			sandboxEnabled = true
			sandboxDir = "/workspace"
			sandboxAccess = sb.WorkspaceAccess
			if sandboxAccess == "" {
				sandboxAccess = "rw"
			}
		}

		loop := NewLoop(LoopConfig{
			ID:                     agentKey,
			Provider:               provider,
			Model:                  firstNonEmpty(spec.Model, defaults.Model),
			ContextWindow:          contextWindow,
			MaxIterations:          maxIter,
			MaxImageBytes:          visionMaxImageBytes(spec.Tools),
			Workspace:              workspace,
			Bus:                    deps.Bus,
			Sessions:               deps.Sessions,
			Tools:                  deps.Tools,
			Delegate:               deps.Delegate,
			ToolPolicy:             deps.ToolPolicy,
			AgentToolPolicy:        spec.Tools,
			SkillsLoader:           deps.Skills,
			SkillAllowList:         spec.Skills,
			SkillInlineMaxCount:    deps.Config.Skills.InlineMaxCount,
			SkillInlineMaxTokens:   deps.Config.Skills.InlineMaxTokens,
			HasMemory:              deps.HasMemory,
			ContextFiles:           contextFiles,
			OnEvent:                deps.OnEvent,
			TraceCollector:         deps.TraceCollector,
			InjectionAction:        deps.InjectionAction,
			MaxMessageChars:        deps.MaxMessageChars,
			CompactionCfg:          compactionCfg,
			ContextPruningCfg:      contextPruningCfg,
			SandboxEnabled:         sandboxEnabled,
			SandboxContainerDir:    sandboxDir,
			SandboxWorkspaceAccess: sandboxAccess,
			AgentType:              firstNonEmpty(spec.AgentType, defaults.AgentType),
		})

		slog.Info("resolved agent from config", "agent", agentKey, "model", loop.model, "provider", provider.Name())
		return loop, nil
	}
}

func visionMaxImageBytes(policy *config.ToolPolicySpec) int {
	if policy == nil || policy.Vision == nil {
		return 0
	}
	return policy.Vision.MaxImageBytes
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstSandbox(specs ...*config.SandboxConfig) *config.SandboxConfig {
	for _, s := range specs {
		if s != nil {
			return s
		}
	}
	return nil
}

// siblingPersonaKeys lists every other configured persona, for DELEGATION.md.
func siblingPersonaKeys(cfg *config.Config, self string) []string {
	var out []string
	for key := range cfg.Agents.List {
		if key != self {
			out = append(out, key)
		}
	}
	return out
}

// buildDelegateAgentsMD generates DELEGATION.md content listing sibling
// personas the delegate tool can target.
func buildDelegateAgentsMD(targets []string) string {
	var sb strings.Builder
	sb.WriteString("# Agent Delegation\n\n")
	sb.WriteString("You have the `Task` tool available. Use it to hand tasks to other personas.\n")
	sb.WriteString("The list below is complete and authoritative.\n\n")
	sb.WriteString("## Available Agents\n")
	for _, t := range targets {
		sb.WriteString(fmt.Sprintf("\n### %s\n→ `Task(target_agent=\"%s\", task=\"describe the task\")`\n", t, t))
	}
	return sb.String()
}
