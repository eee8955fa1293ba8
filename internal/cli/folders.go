package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nissyi-gh/remind/internal/collection"
	"github.com/nissyi-gh/remind/internal/model"
	"github.com/nissyi-gh/remind/internal/query"
)

func (a *app) foldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List folders with their open task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			opts := a.syncOptions(out)
			folders := collection.NewFolders(a.client.Folders(), opts)
			if err := folders.Load(cmd.Context(), query.Descriptor{}); err != nil {
				return describe(err)
			}
			snap := folders.Snapshot()
			if len(snap.Results) == 0 {
				fmt.Fprintln(out, "No folders.")
				return nil
			}

			tasks := collection.NewTasks(a.client.Tasks(), opts)
			open := query.Build(query.Inputs{Limit: query.Unbounded, Completed: query.IncompleteOnly})
			if err := tasks.Load(cmd.Context(), open); err != nil {
				return describe(err)
			}
			counts := map[int]int{}
			for _, t := range tasks.Snapshot().Results {
				if t.FolderID != nil {
					counts[*t.FolderID]++
				}
			}

			rows := make([][]string, 0, len(snap.Results))
			for _, f := range snap.Results {
				rows = append(rows, []string{strconv.Itoa(f.ID), f.Name, strconv.Itoa(counts[f.ID])})
			}
			fmt.Fprintln(out, table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "NAME", "OPEN").
				Rows(rows...).
				StyleFunc(func(row, _ int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				}).
				Render())
			return nil
		},
	}
	cmd.AddCommand(a.folderAddCmd(), a.folderRenameCmd(), a.folderRemoveCmd())
	return cmd
}

func (a *app) loadFolders(cmd *cobra.Command) (*collection.Folders, error) {
	folders := collection.NewFolders(a.client.Folders(), a.syncOptions(cmd.OutOrStdout()))
	if err := folders.Load(cmd.Context(), query.Descriptor{}); err != nil {
		return nil, describe(err)
	}
	return folders, nil
}

func (a *app) folderAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			name, err := model.NormalizeFolderName(args[0])
			if err != nil {
				return err
			}
			folders := collection.NewFolders(a.client.Folders(), a.syncOptions(cmd.OutOrStdout()))
			f, err := folders.Create(cmd.Context(), model.Folder{Name: name, AssignedTo: a.session.User().ID})
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", f.ID, f.Name)
			return nil
		},
	}
}

func (a *app) folderRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <folder> <new name>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			name, err := model.NormalizeFolderName(args[1])
			if err != nil {
				return err
			}
			folders, err := a.loadFolders(cmd)
			if err != nil {
				return err
			}
			f, err := resolveFolder(folders, args[0])
			if err != nil {
				return err
			}
			if f.Name == name {
				fmt.Fprintln(cmd.OutOrStdout(), "Name unchanged.")
				return nil
			}
			f.Name = name
			if _, err := folders.Update(cmd.Context(), f.ID, f); err != nil {
				return describe(err)
			}
			return nil
		},
	}
}

func (a *app) folderRemoveCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <folder>",
		Aliases: []string{"delete"},
		Short:   "Delete a folder and its tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			folders, err := a.loadFolders(cmd)
			if err != nil {
				return err
			}
			f, err := resolveFolder(folders, args[0])
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("deleting %q also deletes its tasks, pass --yes to confirm", f.Name)
			}
			if err := folders.Delete(cmd.Context(), f.ID); err != nil {
				return describe(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	return cmd
}
