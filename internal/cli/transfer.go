package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nissyi-gh/remind/internal/collection"
	"github.com/nissyi-gh/remind/internal/importer"
	"github.com/nissyi-gh/remind/internal/prompt"
)

func (a *app) importCmd() *cobra.Command {
	var folder string
	var fromClipboard bool
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Create tasks from a YAML document (file, - for stdin)",
		Long: `Create tasks from a YAML document:

  folder: Errands          # optional, created when missing
  tasks:
    - title: Buy milk
      description: 2 litres
      deadline: 2025-01-31 18:00
      priority: 3

Every entry is validated before anything is created.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			var doc string
			switch {
			case fromClipboard:
				text, err := a.pasteText()
				if err != nil {
					return fmt.Errorf("read clipboard: %w", err)
				}
				doc = text
			case len(args) == 0 || args[0] == "-":
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				doc = string(data)
			default:
				data, err := os.ReadFile(args[0])
				if err != nil {
					return err
				}
				doc = string(data)
			}

			out := cmd.OutOrStdout()
			folders, err := a.loadFolders(cmd)
			if err != nil {
				return err
			}
			scope, err := resolveFolder(folders, folder)
			if err != nil {
				return err
			}
			// Per-task confirmations would drown the summary.
			tasks := collection.NewTasks(a.client.Tasks(), a.syncOptions(io.Discard))
			n, err := importer.Import(cmd.Context(), tasks, folders, doc, importer.Options{
				UserID:   a.session.User().ID,
				FolderID: scope.ID,
				Now:      a.now,
			})
			if err != nil {
				if n > 0 {
					fmt.Fprintf(out, "Imported %d tasks before failing.\n", n)
				}
				return describe(err)
			}
			fmt.Fprintf(out, "Imported %d tasks.\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "folder for documents that name none")
	cmd.Flags().BoolVar(&fromClipboard, "clipboard", false, "read the document from the clipboard")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var q queryFlags
	var output string
	var toClipboard bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the listed tasks as an importable YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("limit") {
				q.limit = -1
			}
			tasks, _, scope, _, err := a.loadScope(cmd.Context(), cmd.OutOrStdout(), &q)
			if err != nil {
				return err
			}
			doc, err := importer.Export(scope.Name, tasks.Snapshot().Results)
			if err != nil {
				return err
			}
			switch {
			case toClipboard:
				if err := a.copyText(doc); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Copied YAML to clipboard.")
			case output != "" && output != "-":
				if err := os.WriteFile(output, []byte(doc), 0o644); err != nil {
					return err
				}
			default:
				fmt.Fprint(cmd.OutOrStdout(), doc)
			}
			return nil
		},
	}
	q.register(cmd.Flags())
	cmd.Flags().StringVar(&output, "output", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&toClipboard, "copy", false, "copy to the clipboard instead of printing")
	return cmd
}

func (a *app) promptCmd() *cobra.Command {
	var q queryFlags
	var fromTasks, toClipboard bool
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print an assistant prompt that answers in the import format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text := prompt.GenerateNew(a.now())
			if fromTasks {
				if err := a.requireLogin(); err != nil {
					return err
				}
				if !cmd.Flags().Changed("limit") {
					q.limit = -1
				}
				tasks, _, scope, _, err := a.loadScope(cmd.Context(), cmd.OutOrStdout(), &q)
				if err != nil {
					return err
				}
				text = prompt.GenerateFromTasks(a.now(), scope.Name, tasks.Snapshot().Results)
			}
			if toClipboard {
				if err := a.copyText(text); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Copied prompt to clipboard.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	q.register(cmd.Flags())
	cmd.Flags().BoolVar(&fromTasks, "from-tasks", false, "describe the listed tasks and ask for the missing ones")
	cmd.Flags().BoolVar(&toClipboard, "copy", false, "copy to the clipboard instead of printing")
	return cmd
}
