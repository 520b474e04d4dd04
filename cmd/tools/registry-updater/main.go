// cmd/tools/registry-updater/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"research-workers/pkg/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var registryPath string
	root := &cobra.Command{
		Use:          "registry-updater",
		Short:        "Maintain the activity registry",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&registryPath, "path", registry.DefaultPath, "Path to registry file")

	root.AddCommand(
		addCmd(&registryPath),
		updateCmd(&registryPath),
		validateCmd(&registryPath),
		listCmd(&registryPath),
	)
	return root
}

func addCmd(path *string) *cobra.Command {
	a := registry.Activity{}
	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a new activity to the registry",
		Example: `  registry-updater add --id web-search --displayName "Web Search" --description "Search the web" --category research --taskType research-web-search`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.ID == "" || a.DisplayName == "" || a.Description == "" || a.Category == "" || a.TaskType == "" {
				return errors.New("id, displayName, description, category, and taskType are required for add")
			}
			if err := addActivity(*path, a); err != nil {
				return fmt.Errorf("error adding activity: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added activity: %s\n", a.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.ID, "id", "", "Activity ID (e.g., web-search)")
	f.StringVar(&a.DisplayName, "displayName", "", "Display Name (e.g., Web Search)")
	f.StringVar(&a.Description, "description", "", "Description")
	f.StringVar(&a.Category, "category", "", "Category (e.g., research)")
	f.StringVar(&a.TaskType, "taskType", "", "Camunda Task Type (e.g., research-web-search)")
	f.StringVar(&a.Version, "version", "1.0.0", "Version")
	f.StringVar(&a.ImplementationStatus, "status", registry.StatusPlanned, "Implementation Status (planned, in-progress, completed, verified)")
	f.StringVar(&a.Timeout, "timeout", "10s", "Job timeout")
	f.IntVar(&a.Retries, "retries", 0, "Retries for retryable errors")
	return cmd
}

func updateCmd(path *string) *cobra.Command {
	var id, field, value string
	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Update an existing activity's field",
		Example: "  registry-updater update --id web-search --field status --value completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" || field == "" || value == "" {
				return errors.New("id, field, and value are required for update")
			}
			if err := updateActivity(*path, id, field, value); err != nil {
				return fmt.Errorf("error updating activity: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Activity ID to update")
	cmd.Flags().StringVar(&field, "field", "", "Field to update (status, version, etc.)")
	cmd.Flags().StringVar(&value, "value", "", "New value for the field")
	return cmd
}

func validateCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the registry file",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}
}

func listCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(*path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			return listActivities(cmd.OutOrStdout(), reg)
		},
	}
}

func addActivity(path string, activity registry.Activity) error {
	reg, err := registry.Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.ActivityRegistry{Version: "1.0.0"}
	}

	if _, exists := reg.FindByID(activity.ID); exists {
		return fmt.Errorf("activity with ID %s already exists", activity.ID)
	}
	if _, exists := reg.Find(activity.TaskType); exists {
		return fmt.Errorf("task type %s is already registered", activity.TaskType)
	}

	activity.InputSchema = map[string]interface{}{}
	activity.OutputSchema = map[string]interface{}{}
	activity.ErrorCodes = []string{}
	activity.Workflows = []string{}
	activity.Tags = []string{}

	reg.Activities = append(reg.Activities, activity)
	return reg.Save(path)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	a, found := reg.FindByID(id)
	if !found {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "taskType":
		a.TaskType = value
	case "timeout":
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	return reg.Save(path)
}

func listActivities(w io.Writer, reg *registry.ActivityRegistry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTASK TYPE\tSTATUS\tVERSION\tTIMEOUT\tRETRIES")
	for _, a := range reg.Activities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", a.ID, a.TaskType, a.ImplementationStatus, a.Version, a.Timeout, a.Retries)
	}
	return tw.Flush()
}
