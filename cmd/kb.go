package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"noor-chat/internal/knowledge"
	"noor-chat/internal/terminal"
)

var (
	kbQuery       string
	kbCategory    string
	kbDescription string
	kbStrength    float64
	kbRelDesc     string
	kbBidir       bool
	kbDepth       int
	kbPathLen     int
	kbYes         bool
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the knowledge base behind the chat backend",
}

var kbConceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "List concepts, optionally filtered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := kbClient()
		if err != nil {
			return err
		}
		concepts, err := client.Concepts(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing concepts: %w", err)
		}
		printConcepts(cmd.OutOrStdout(), knowledge.Filter(concepts, kbQuery, kbCategory))
		return nil
	},
}

var kbAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a concept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := kbClient()
		if err != nil {
			return err
		}
		created, err := client.CreateConcept(cmd.Context(), knowledge.Concept{
			Name:        args[0],
			Description: kbDescription,
			Category:    kbCategory,
		})
		if err != nil {
			return fmt.Errorf("creating concept: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created concept %s (%s)\n", created.Name, created.ID)
		return nil
	},
}

var kbRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a concept and its relations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !kbYes && !terminal.PromptConfirm(fmt.Sprintf("Delete concept %s", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
		client, err := kbClient()
		if err != nil {
			return err
		}
		if err := client.DeleteConcept(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting concept: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted concept %s\n", args[0])
		return nil
	},
}

var kbRelateCmd = &cobra.Command{
	Use:   "relate <source> <type> <target>",
	Short: "Create a relation between two concepts",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := kbClient()
		if err != nil {
			return err
		}
		r, err := client.CreateRelation(cmd.Context(), knowledge.Relation{
			Source:        args[0],
			RelationType:  args[1],
			Target:        args[2],
			Strength:      kbStrength,
			Description:   kbRelDesc,
			Bidirectional: kbBidir,
		})
		if err != nil {
			return fmt.Errorf("creating relation: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Related %s -[%s %.2f]-> %s\n", r.Source, r.RelationType, r.Strength, r.Target)
		return nil
	},
}

var kbUnrelateCmd = &cobra.Command{
	Use:   "unrelate <source> <target>",
	Short: "Delete the relation from source to target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := kbClient()
		if err != nil {
			return err
		}
		if err := client.DeleteRelation(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("deleting relation: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed relation %s -> %s\n", args[0], args[1])
		return nil
	},
}

var kbCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List concept categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := kbClient()
		if err != nil {
			return err
		}
		cats, err := client.Categories(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing categories: %w", err)
		}
		for _, c := range cats {
			fmt.Fprintln(cmd.OutOrStdout(), c)
		}
		return nil
	},
}

var kbRelatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "Show concepts reachable from a concept, strongest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := kbGraph(cmd)
		if err != nil {
			return err
		}
		if _, ok := g.Concept(args[0]); !ok {
			return fmt.Errorf("concept %s: %w", args[0], knowledge.ErrNotFound)
		}

		scores := g.Related(args[0], kbDepth)
		if len(scores) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No related concepts")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTRENGTH\tDEPTH")
		for _, s := range scores {
			fmt.Fprintf(w, "%s\t%s\t%.3f\t%d\n", s.ID, s.Name, s.Strength, s.Depth)
		}
		return w.Flush()
	},
}

var kbPathsCmd = &cobra.Command{
	Use:   "paths <source> <target>",
	Short: "Show the relation paths between two concepts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := kbGraph(cmd)
		if err != nil {
			return err
		}
		paths := g.Paths(args[0], args[1], kbPathLen)
		if len(paths) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No paths found")
			return nil
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), formatPath(p))
		}
		return nil
	},
}

var kbReasonCmd = &cobra.Command{
	Use:   "reason <question>",
	Short: "Reason over the knowledge base about a question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := kbClient()
		if err != nil {
			return err
		}
		thought, err := client.Reason(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("reasoning: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), knowledge.FormatThought(thought))
		return nil
	},
}

var kbExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the knowledge base as JSON (stdout when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := kbClient()
		if err != nil {
			return err
		}
		snap, err := client.Export(cmd.Context())
		if err != nil {
			return fmt.Errorf("exporting knowledge base: %w", err)
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		if len(args) == 0 {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}
		if err := os.WriteFile(args[0], data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d concepts and %d relations to %s\n",
			len(snap.Concepts), len(snap.Relations), args[0])
		return nil
	},
}

var kbImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the knowledge base with a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		var snap knowledge.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		// validate locally before replacing anything on the server
		if _, err := knowledge.FromSnapshot(snap); err != nil {
			return err
		}

		if !kbYes && !terminal.PromptConfirm("Replace the whole knowledge base") {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
		client, err := kbClient()
		if err != nil {
			return err
		}
		imported, err := client.Import(cmd.Context(), snap)
		if err != nil {
			return fmt.Errorf("importing knowledge base: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d concepts and %d relations\n",
			len(imported.Concepts), len(imported.Relations))
		return nil
	},
}

func init() {
	kbConceptsCmd.Flags().StringVarP(&kbQuery, "query", "q", "", "match name or description")
	kbConceptsCmd.Flags().StringVarP(&kbCategory, "category", "c", "", "only this category")

	kbAddCmd.Flags().StringVarP(&kbDescription, "description", "d", "", "concept description")
	kbAddCmd.Flags().StringVarP(&kbCategory, "category", "c", "", "concept category (default general)")

	kbRelateCmd.Flags().Float64VarP(&kbStrength, "strength", "s", 0.5, "relation strength between 0 and 1")
	kbRelateCmd.Flags().StringVarP(&kbRelDesc, "description", "d", "", "relation description")
	kbRelateCmd.Flags().BoolVarP(&kbBidir, "bidirectional", "b", false, "relation holds both ways")

	kbRelatedCmd.Flags().IntVar(&kbDepth, "depth", 2, "hops to follow past direct neighbours")
	kbPathsCmd.Flags().IntVar(&kbPathLen, "max-length", 3, "most relations in one path")

	kbRmCmd.Flags().BoolVarP(&kbYes, "yes", "y", false, "do not ask for confirmation")
	kbImportCmd.Flags().BoolVarP(&kbYes, "yes", "y", false, "do not ask for confirmation")

	kbCmd.AddCommand(kbConceptsCmd, kbAddCmd, kbRmCmd, kbRelateCmd, kbUnrelateCmd,
		kbCategoriesCmd, kbRelatedCmd, kbPathsCmd, kbReasonCmd, kbExportCmd, kbImportCmd)
	rootCmd.AddCommand(kbCmd)
}

func kbClient() (*knowledge.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return knowledge.NewClient(cfg.BackendURL, 30*time.Second), nil
}

// kbGraph downloads the whole knowledge base for local traversal
func kbGraph(cmd *cobra.Command) (*knowledge.Graph, error) {
	client, err := kbClient()
	if err != nil {
		return nil, err
	}
	snap, err := client.Export(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("fetching knowledge base: %w", err)
	}
	return knowledge.FromSnapshot(snap)
}

func printConcepts(out io.Writer, concepts []knowledge.Concept) {
	if len(concepts) == 0 {
		fmt.Fprintln(out, "No concepts found")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tDESCRIPTION")
	for _, c := range concepts {
		desc := c.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Category, desc)
	}
	w.Flush()
}

func formatPath(steps []knowledge.Step) string {
	var sb strings.Builder
	for i, s := range steps {
		if i == 0 {
			sb.WriteString(s.From)
		}
		fmt.Fprintf(&sb, " -[%s]-> %s", s.RelationType, s.To)
	}
	return sb.String()
}
