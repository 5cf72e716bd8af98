// Package project layers a project/environment view over the credential
// store. It owns no storage of its own: every operation resolves to store
// calls under project scopes, so the store's validation, caching, and audit
// guarantees apply unchanged.
package project

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-secure-stdlib/strutil"

	"github.com/stephnangue/credvault/audit"
	"github.com/stephnangue/credvault/logger"
	"github.com/stephnangue/credvault/scope"
	"github.com/stephnangue/credvault/store"
)

// Clone result statuses.
const (
	CloneStatusCloned = "cloned"
	CloneStatusFailed = "failed"
)

// Manager groups credentials into projects and environments.
type Manager struct {
	store   *store.Store
	auditor *audit.Broadcaster
	log     logger.Logger
}

// NewManager creates a project manager over the store. A nil auditor
// disables the project-level audit events; the store still emits its own.
func NewManager(s *store.Store, auditor *audit.Broadcaster, log logger.Logger) *Manager {
	if auditor == nil {
		auditor = audit.NewBroadcaster(log)
	}
	return &Manager{
		store:   s,
		auditor: auditor,
		log:     log.WithSubsystem("project"),
	}
}

// Info summarizes one project for a tenant.
type Info struct {
	Name         string   `json:"name"`
	Environments []string `json:"environments"`
	Credentials  int      `json:"credentials"`
}

// CloneResult reports the outcome of cloning one (provider, environment)
// pair. Cloning is best-effort: one failure never aborts the rest.
type CloneResult struct {
	Provider    string `json:"provider"`
	Environment string `json:"environment"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
}

// DeleteResult reports what a project deletion removed, or would remove
// when unconfirmed.
type DeleteResult struct {
	Project string   `json:"project"`
	DryRun  bool     `json:"dry_run"`
	Deleted []string `json:"deleted,omitempty"`
}

// SetCredential stores a credential under the project/environment scope.
// An empty environment means the project's default environment.
func (m *Manager) SetCredential(ctx context.Context, providerID, credential, tenantID, projectName, environment string) (*store.Summary, error) {
	if projectName == "" {
		return nil, fmt.Errorf("project name is required")
	}
	return m.store.StoreCredential(ctx, providerID, credential, tenantID, scope.Project(projectName, environment), nil)
}

// GetCredential retrieves a credential stored under the project/environment
// scope. There is no fallback to the tenant's unscoped credential; a project
// that has not been given a credential reads as absent.
func (m *Manager) GetCredential(ctx context.Context, providerID, tenantID, projectName, environment string) (string, bool, error) {
	if projectName == "" {
		return "", false, fmt.Errorf("project name is required")
	}
	return m.store.GetCredential(ctx, providerID, tenantID, scope.Project(projectName, environment))
}

// ListProjects groups the tenant's project-scoped credentials by project
// name, sorted. Credentials outside a project scope are not included.
func (m *Manager) ListProjects(ctx context.Context, tenantID string) ([]*Info, error) {
	summaries, err := m.store.ListCredentials(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*Info)
	envSeen := make(map[string]map[string]bool)
	for _, summary := range summaries {
		sc := scope.Parse(summary.Scope)
		if sc.Kind() != scope.KindProject {
			continue
		}
		info := byName[sc.Name()]
		if info == nil {
			info = &Info{Name: sc.Name()}
			byName[sc.Name()] = info
			envSeen[sc.Name()] = make(map[string]bool)
		}
		info.Credentials++
		if !envSeen[sc.Name()][sc.Environment()] {
			envSeen[sc.Name()][sc.Environment()] = true
			info.Environments = append(info.Environments, sc.Environment())
		}
	}

	projects := make([]*Info, 0, len(byName))
	for _, info := range byName {
		sort.Strings(info.Environments)
		projects = append(projects, info)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// CloneCredentials copies credentials from one project to another, one
// (provider, environment) pair at a time. By default every environment
// under the source project is cloned, each pair keeping its environment in
// the target. A non-empty srcEnv narrows the clone to that environment, in
// which case dstEnv may rename it on the target side. When providers is
// non-empty only those providers are cloned. Each credential is decrypted
// from the source and re-stored under the destination scope, so the
// destination gets its own ciphertext under a fresh nonce.
func (m *Manager) CloneCredentials(ctx context.Context, tenantID, srcProject, srcEnv, dstProject, dstEnv string, providers []string) ([]*CloneResult, error) {
	if srcProject == "" || dstProject == "" {
		return nil, fmt.Errorf("source and destination project names are required")
	}
	if srcEnv == "" && dstEnv != "" {
		return nil, fmt.Errorf("a target environment requires a source environment")
	}
	if srcProject == dstProject {
		if srcEnv == "" {
			return nil, fmt.Errorf("source and destination scopes are identical")
		}
		eff := dstEnv
		if eff == "" {
			eff = srcEnv
		}
		if scope.Project(srcProject, srcEnv) == scope.Project(dstProject, eff) {
			return nil, fmt.Errorf("source and destination scopes are identical")
		}
	}

	summaries, err := m.store.ListCredentials(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// srcEnv goes through Project so "" and "default" select the same
	// environment when the caller narrows the clone.
	srcEnvFilter := ""
	if srcEnv != "" {
		srcEnvFilter = scope.Project(srcProject, srcEnv).Environment()
	}

	var results []*CloneResult
	anyFailed := false
	for _, summary := range summaries {
		sc := scope.Parse(summary.Scope)
		if sc.Kind() != scope.KindProject || sc.Name() != srcProject {
			continue
		}
		if srcEnvFilter != "" && sc.Environment() != srcEnvFilter {
			continue
		}
		if len(providers) > 0 && !strutil.StrListContains(providers, summary.Provider) {
			continue
		}

		targetEnv := sc.Environment()
		if dstEnv != "" {
			targetEnv = dstEnv
		}
		dstScope := scope.Project(dstProject, targetEnv)

		result := &CloneResult{
			Provider:    summary.Provider,
			Environment: sc.Environment(),
			Status:      CloneStatusCloned,
		}
		if err := m.cloneOne(ctx, summary.Provider, tenantID, sc, dstScope); err != nil {
			result.Status = CloneStatusFailed
			result.Error = err.Error()
			anyFailed = true
			m.log.Warn("clone failed for provider",
				logger.String("provider", summary.Provider),
				logger.String("source", sc.String()),
				logger.String("destination", dstScope.String()),
				logger.Err(err))
		}
		results = append(results, result)
	}

	m.emit(ctx, audit.ActionProjectClone, tenantID, scope.Project(dstProject, ""), !anyFailed, nil)
	m.log.Info("project credentials cloned",
		logger.String("source_project", srcProject),
		logger.String("target_project", dstProject),
		logger.Int("credentials", len(results)))
	return results, nil
}

func (m *Manager) cloneOne(ctx context.Context, providerID, tenantID string, src, dst scope.Scope) error {
	value, found, err := m.store.GetCredential(ctx, providerID, tenantID, src)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("source credential disappeared during clone")
	}
	_, err = m.store.StoreCredential(ctx, providerID, value, tenantID, dst, map[string]string{"source": "clone"})
	return err
}

// DeleteProject removes every credential stored under the project, across
// all of its environments. Without confirm it performs a dry run: it
// reports what would be deleted and removes nothing. Individual delete
// failures are aggregated; the rest of the project is still processed.
func (m *Manager) DeleteProject(ctx context.Context, tenantID, projectName string, confirm bool) (*DeleteResult, error) {
	if projectName == "" {
		return nil, fmt.Errorf("project name is required")
	}

	summaries, err := m.store.ListCredentials(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{Project: projectName, DryRun: !confirm}
	var targets []*store.Summary
	for _, summary := range summaries {
		sc := scope.Parse(summary.Scope)
		if sc.Kind() == scope.KindProject && sc.Name() == projectName {
			targets = append(targets, summary)
			result.Deleted = append(result.Deleted, summary.StorageKey)
		}
	}
	sort.Strings(result.Deleted)

	if !confirm {
		m.log.Warn("project delete not confirmed, nothing removed",
			logger.String("project", projectName),
			logger.Int("credentials", len(targets)))
		return result, nil
	}

	var errs *multierror.Error
	for _, summary := range targets {
		sc := scope.Parse(summary.Scope)
		if _, err := m.store.DeleteCredential(ctx, summary.Provider, tenantID, sc); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("delete %s: %w", summary.StorageKey, err))
		}
	}

	err = errs.ErrorOrNil()
	m.emit(ctx, audit.ActionProjectDelete, tenantID, scope.Project(projectName, ""), err == nil, err)
	m.log.Info("project deleted",
		logger.String("project", projectName),
		logger.Int("credentials", len(targets)))
	return result, err
}

func (m *Manager) emit(ctx context.Context, action, tenantID string, sc scope.Scope, success bool, opErr error) {
	event := &audit.Event{
		Action:   action,
		TenantID: tenantID,
		Scope:    sc.String(),
		Success:  success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	_ = m.auditor.Log(ctx, event)
}
