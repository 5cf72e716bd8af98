package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (vs *VaultServer) projectTools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: listProjectsTool(), Handler: vs.handleListProjects},
		{Tool: cloneProjectTool(), Handler: vs.handleCloneProject},
		{Tool: deleteProjectTool(), Handler: vs.handleDeleteProject},
	}
}

func listProjectsTool() mcp.Tool {
	return mcp.NewTool("list_projects",
		mcp.WithDescription("List projects that have scoped credentials, with their environments"),
		mcp.WithString("user_id", mcp.Description("Tenant to list (default: \"default\")")),
	)
}

func cloneProjectTool() mcp.Tool {
	return mcp.NewTool("clone_project_credentials",
		mcp.WithDescription("Copy credentials from one project to another, per (provider, environment) pair. By default every environment under the source is cloned, each keeping its environment on the target. Failures are reported per credential and never abort the rest"),
		mcp.WithString("source_project", mcp.Required(), mcp.Description("Project to copy from")),
		mcp.WithString("source_environment", mcp.Description("Limit the clone to this environment (default: all environments)")),
		mcp.WithString("target_project", mcp.Required(), mcp.Description("Project to copy to")),
		mcp.WithString("target_environment", mcp.Description("Environment to copy to; requires source_environment (default: same as source)")),
		mcp.WithArray("providers", mcp.Description("Limit the clone to these provider ids")),
		mcp.WithString("user_id", mcp.Description("Tenant the projects belong to (default: \"default\")")),
	)
}

func deleteProjectTool() mcp.Tool {
	return mcp.NewTool("delete_project",
		mcp.WithDescription("Delete every credential stored under a project, across all environments. Without confirm=true this is a dry run reporting what would be removed"),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project to delete")),
		mcp.WithString("user_id", mcp.Description("Tenant the project belongs to (default: \"default\")")),
		mcp.WithBoolean("confirm", mcp.Description("Must be true to actually delete")),
	)
}

func (vs *VaultServer) handleListProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenantID := req.GetString("user_id", "default")

	projects, err := vs.projects.ListProjects(ctx, tenantID)
	if err != nil {
		return vs.toolError(err), nil
	}
	return marshalResult(map[string]any{"projects": projects})
}

func (vs *VaultServer) handleCloneProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	srcProject, err := req.RequireString("source_project")
	if err != nil {
		return mcp.NewToolResultError("source_project is required"), nil
	}
	dstProject, err := req.RequireString("target_project")
	if err != nil {
		return mcp.NewToolResultError("target_project is required"), nil
	}
	tenantID := req.GetString("user_id", "default")
	srcEnv := req.GetString("source_environment", "")
	dstEnv := req.GetString("target_environment", "")
	providers := req.GetStringSlice("providers", nil)

	results, cloneErr := vs.projects.CloneCredentials(ctx, tenantID, srcProject, srcEnv, dstProject, dstEnv, providers)
	if cloneErr != nil {
		return vs.toolError(cloneErr), nil
	}
	return marshalResult(map[string]any{"results": results})
}

func (vs *VaultServer) handleDeleteProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectName, err := req.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError("project is required"), nil
	}
	tenantID := req.GetString("user_id", "default")
	confirm := req.GetBool("confirm", false)

	result, delErr := vs.projects.DeleteProject(ctx, tenantID, projectName, confirm)
	if delErr != nil {
		return vs.toolError(delErr), nil
	}
	return marshalResult(result)
}
