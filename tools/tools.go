package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stephnangue/credvault/crypto"
	"github.com/stephnangue/credvault/logger"
	"github.com/stephnangue/credvault/scope"
)

// handleSetCredential validates, encrypts, and stores a credential.
func (vs *VaultServer) handleSetCredential(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	providerID, err := req.RequireString("provider")
	if err != nil {
		return mcp.NewToolResultError("provider is required"), nil
	}
	credential, err := req.RequireString("credential")
	if err != nil {
		return mcp.NewToolResultError("credential is required"), nil
	}
	tenantID := req.GetString("user_id", "default")
	sc := scope.Parse(req.GetString("scope", ""))

	summary, storeErr := vs.store.StoreCredential(ctx, providerID, credential, tenantID, sc, nil)
	if storeErr != nil {
		return vs.toolError(storeErr), nil
	}

	return marshalResult(map[string]any{
		"success":     true,
		"provider_id": summary.Provider,
		"scope":       summary.Scope,
		"storage_key": summary.StorageKey,
		"created_at":  summary.CreatedAt,
	})
}

// handleGetCredential returns the stored credential value. Absence is a
// normal outcome, not a tool failure: callers get a structured
// found=false answer instead of having to string-match error text.
func (vs *VaultServer) handleGetCredential(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	providerID, err := req.RequireString("provider")
	if err != nil {
		return mcp.NewToolResultError("provider is required"), nil
	}
	tenantID := req.GetString("user_id", "default")
	sc := scope.Parse(req.GetString("scope", ""))

	value, found, getErr := vs.store.GetCredential(ctx, providerID, tenantID, sc)
	if getErr != nil {
		return vs.toolError(getErr), nil
	}
	if !found {
		return marshalResult(map[string]any{"found": false})
	}
	return marshalResult(map[string]any{
		"found":      true,
		"credential": value,
	})
}

// handleDeleteCredential removes a credential after explicit confirmation.
func (vs *VaultServer) handleDeleteCredential(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	providerID, err := req.RequireString("provider")
	if err != nil {
		return mcp.NewToolResultError("provider is required"), nil
	}
	if !req.GetBool("confirm", false) {
		return mcp.NewToolResultError("deletion requires confirm=true"), nil
	}
	tenantID := req.GetString("user_id", "default")
	sc := scope.Parse(req.GetString("scope", ""))

	deleted, delErr := vs.store.DeleteCredential(ctx, providerID, tenantID, sc)
	if delErr != nil {
		return vs.toolError(delErr), nil
	}
	return marshalResult(map[string]any{"deleted": deleted})
}

// handleListCredentials lists a tenant's credentials without their values.
func (vs *VaultServer) handleListCredentials(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenantID := req.GetString("user_id", "default")

	summaries, err := vs.store.ListCredentials(ctx, tenantID)
	if err != nil {
		return vs.toolError(err), nil
	}

	items := make([]map[string]any, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, map[string]any{
			"provider_id": summary.Provider,
			"scope":       summary.Scope,
			"masked":      summary.Masked,
			"created_at":  summary.CreatedAt,
			"updated_at":  summary.UpdatedAt,
		})
	}
	return marshalResult(map[string]any{"credentials": items})
}

// handleCredentialStatus aggregates a tenant's credentials per provider.
func (vs *VaultServer) handleCredentialStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenantID := req.GetString("user_id", "default")

	report, err := vs.store.Status(ctx, tenantID)
	if err != nil {
		return vs.toolError(err), nil
	}
	return marshalResult(map[string]any{
		"total_credentials": report.Total,
		"by_provider":       report.Providers,
	})
}

// handleValidateCredential checks format without touching storage. It never
// fails: an unknown provider or malformed credential is a valid=false
// answer, not an error.
func (vs *VaultServer) handleValidateCredential(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	providerID, err := req.RequireString("provider")
	if err != nil {
		return mcp.NewToolResultError("provider is required"), nil
	}
	credential, err := req.RequireString("credential")
	if err != nil {
		return mcp.NewToolResultError("credential is required"), nil
	}

	if valErr := vs.store.ValidateCredential(providerID, credential); valErr != nil {
		return marshalResult(map[string]any{
			"valid":  false,
			"reason": valErr.Error(),
		})
	}
	return marshalResult(map[string]any{"valid": true})
}

// toolError presents a store error to the caller. Integrity failures are
// flagged as incidents so they cannot be mistaken for ordinary bad input
// or a missing credential.
func (vs *VaultServer) toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, crypto.ErrAuthenticationFailed):
		vs.log.Error("integrity failure surfaced to tool caller", logger.Err(err))
		return mcp.NewToolResultError("data integrity incident: stored credential failed authentication; the master key may have changed or the record was tampered with. Operator attention required")
	case errors.Is(err, crypto.ErrEncryptionFailed):
		vs.log.Error("encryption failure surfaced to tool caller", logger.Err(err))
		return mcp.NewToolResultError("encryption failure: the vault could not encrypt the credential. Operator attention required")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
