// Package tools exposes the vault over MCP. It is a thin adapter: argument
// extraction, tenant defaulting, and error presentation live here; every
// guarantee about validation, encryption, and audit belongs to the store.
package tools

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/stephnangue/credvault/logger"
	"github.com/stephnangue/credvault/project"
	"github.com/stephnangue/credvault/store"
)

// VaultServer wraps an MCP server with credential tool handlers.
type VaultServer struct {
	store     *store.Store
	projects  *project.Manager
	log       logger.Logger
	mcpServer *server.MCPServer
}

// NewVaultServer creates the MCP server with all six tools registered.
func NewVaultServer(s *store.Store, projects *project.Manager, log logger.Logger) *VaultServer {
	vs := &VaultServer{
		store:    s,
		projects: projects,
		log:      log.WithSubsystem("tools"),
	}

	mcpSrv := server.NewMCPServer(
		"credvault",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("credvault stores provider credentials encrypted at rest. Use set_credential to store, get_credential to retrieve, delete_credential (with confirm=true) to remove, list_credentials and credential_status to inspect, and validate_credential to check a credential's format without storing it. Scopes like \"work\" or \"project:api:staging\" keep multiple credentials per provider apart."),
	)
	mcpSrv.AddTools(vs.tools()...)
	mcpSrv.AddTools(vs.projectTools()...)
	vs.mcpServer = mcpSrv
	return vs
}

// Serve starts the stdio transport and blocks until ctx is cancelled or
// stdin closes.
func (vs *VaultServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(vs.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server for testing or custom transports.
func (vs *VaultServer) MCPServer() *server.MCPServer {
	return vs.mcpServer
}

func (vs *VaultServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: setCredentialTool(), Handler: vs.handleSetCredential},
		{Tool: getCredentialTool(), Handler: vs.handleGetCredential},
		{Tool: deleteCredentialTool(), Handler: vs.handleDeleteCredential},
		{Tool: listCredentialsTool(), Handler: vs.handleListCredentials},
		{Tool: credentialStatusTool(), Handler: vs.handleCredentialStatus},
		{Tool: validateCredentialTool(), Handler: vs.handleValidateCredential},
	}
}

// --- Tool definitions ---

func setCredentialTool() mcp.Tool {
	return mcp.NewTool("set_credential",
		mcp.WithDescription("Store a provider credential, encrypted at rest. Replaces any existing credential for the same provider and scope"),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Provider id (github, gitlab, openai, anthropic, mistral, aws)")),
		mcp.WithString("credential", mcp.Required(), mcp.Description("The credential value to store")),
		mcp.WithString("user_id", mcp.Description("Tenant the credential belongs to (default: \"default\")")),
		mcp.WithString("scope", mcp.Description("Optional scope, e.g. \"work\" or \"project:api:staging\"")),
	)
}

func getCredentialTool() mcp.Tool {
	return mcp.NewTool("get_credential",
		mcp.WithDescription("Retrieve a stored credential. Returns {found, credential}; found=false when nothing is stored"),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Provider id")),
		mcp.WithString("user_id", mcp.Description("Tenant the credential belongs to (default: \"default\")")),
		mcp.WithString("scope", mcp.Description("Scope the credential was stored under")),
	)
}

func deleteCredentialTool() mcp.Tool {
	return mcp.NewTool("delete_credential",
		mcp.WithDescription("Delete a stored credential. Requires confirm=true"),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Provider id")),
		mcp.WithString("user_id", mcp.Description("Tenant the credential belongs to (default: \"default\")")),
		mcp.WithString("scope", mcp.Description("Scope the credential was stored under")),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true to actually delete")),
	)
}

func listCredentialsTool() mcp.Tool {
	return mcp.NewTool("list_credentials",
		mcp.WithDescription("List stored credentials for a tenant. Never returns credential values"),
		mcp.WithString("user_id", mcp.Description("Tenant to list (default: \"default\")")),
	)
}

func credentialStatusTool() mcp.Tool {
	return mcp.NewTool("credential_status",
		mcp.WithDescription("Per-provider summary of a tenant's stored credentials"),
		mcp.WithString("user_id", mcp.Description("Tenant to summarize (default: \"default\")")),
	)
}

func validateCredentialTool() mcp.Tool {
	return mcp.NewTool("validate_credential",
		mcp.WithDescription("Check a credential's format without storing it"),
		mcp.WithString("provider", mcp.Required(), mcp.Description("Provider id")),
		mcp.WithString("credential", mcp.Required(), mcp.Description("The credential value to check")),
	)
}
