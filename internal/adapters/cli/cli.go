package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"budget-engine/internal/app"
	"budget-engine/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// ServiceFunc opens the ApplicationService on first use. Commands that do not
// touch storage (perms, schema) never call it.
type ServiceFunc func() (app.ApplicationService, error)

// NewRootCommand builds the command tree. Output goes to cmd.OutOrStdout().
func NewRootCommand(open ServiceFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "budget",
		Short:         "Budget revisions, tiered price resolution and project promotion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		resolveCmd(open),
		permsCmd(open),
		transitionCmd(open),
		markupCmd(open),
		summaryCmd(open),
		promoteCmd(open),
		relinkCmd(open),
		importCmd(open),
		schemaCmd(),
	)
	return root
}

func resolveCmd(open ServiceFunc) *cobra.Command {
	var company, region, manufacturer int
	var asOf string
	cmd := &cobra.Command{
		Use:     "resolve <MATERIAL|LABOR> <item-id>",
		Aliases: []string{"res", "r"},
		Short:   "Resolve the effective price of an item",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := parseID("item-id", args[1])
			if err != nil {
				return err
			}
			req := app.ResolvePriceRequest{
				ItemType:       args[0],
				ItemID:         itemID,
				CompanyID:      optionalInt(cmd, "company", company),
				RegionID:       optionalInt(cmd, "region", region),
				ManufacturerID: optionalInt(cmd, "manufacturer", manufacturer),
				AsOf:           asOf,
			}
			svc, err := open()
			if err != nil {
				return err
			}
			result, err := svc.ResolvePrice(cmd.Context(), req)
			if err != nil {
				return err
			}
			printPrice(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().IntVar(&company, "company", 0, "Company id of the resolution context")
	cmd.Flags().IntVar(&region, "region", 0, "Region id of the resolution context")
	cmd.Flags().IntVar(&manufacturer, "manufacturer", 0, "Requested manufacturer (materials only)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date YYYY-MM-DD (default today)")
	return cmd
}

func permsCmd(open ServiceFunc) *cobra.Command {
	var revisionID int
	cmd := &cobra.Command{
		Use:   "perms [status]",
		Short: "Show what a status, or a stored revision, allows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if revisionID > 0 {
				svc, err := open()
				if err != nil {
					return err
				}
				result, err := svc.RevisionPermissions(cmd.Context(), revisionID)
				if err != nil {
					return err
				}
				printPermissions(cmd.OutOrStdout(), result)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("either a status or --revision is required")
			}
			printPermissions(cmd.OutOrStdout(), staticPermissions(args[0]))
			return nil
		},
	}
	cmd.Flags().IntVar(&revisionID, "revision", 0, "Stored revision id")
	return cmd
}

// staticPermissions maps a status without opening storage. Unknown statuses are
// passed through so their restrictive permission set is shown.
func staticPermissions(s string) *app.PermissionsResult {
	status, err := core.ParseRevisionStatus(s)
	if err != nil {
		status = core.RevisionStatus(strings.ToUpper(strings.TrimSpace(s)))
	}
	p := core.Permissions(status)
	blocked := make(map[core.Action]string)
	for _, a := range core.AllActions {
		if reason := p.Reason(a); reason != "" {
			blocked[a] = reason
		}
	}
	return &app.PermissionsResult{Permissions: p, Blocked: blocked}
}

func transitionCmd(open ServiceFunc) *cobra.Command {
	return &cobra.Command{
		Use:     "transition <revision-id> <action|status>",
		Aliases: []string{"tr"},
		Short:   "Apply send/approve/reject/cancel, or move to a status",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			revisionID, err := parseID("revision-id", args[0])
			if err != nil {
				return err
			}
			svc, err := open()
			if err != nil {
				return err
			}
			var result *app.RevisionResult
			action := core.Action(strings.ToLower(args[1]))
			if _, ok := core.TargetStatus(action); ok {
				result, err = svc.PerformAction(cmd.Context(), revisionID, action)
			} else {
				status, perr := core.ParseRevisionStatus(args[1])
				if perr != nil {
					return perr
				}
				result, err = svc.TransitionRevision(cmd.Context(), revisionID, status)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revision %d (budget %d, #%d) is now %s.\n",
				result.Revision.ID, result.Revision.BudgetID, result.Revision.RevisionNumber, result.Revision.Status)
			return nil
		},
	}
}

func markupCmd(open ServiceFunc) *cobra.Command {
	var perWBS bool
	cmd := &cobra.Command{
		Use:   "markup <revision-id> [fraction]",
		Short: "Show or set the markup rule of a revision",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			revisionID, err := parseID("revision-id", args[0])
			if err != nil {
				return err
			}
			svc, err := open()
			if err != nil {
				return err
			}
			var result *app.MarkupResult
			if len(args) == 1 {
				result, err = svc.GetMarkup(cmd.Context(), revisionID)
			} else {
				pct, perr := decimal.NewFromString(args[1])
				if perr != nil {
					return fmt.Errorf("invalid markup %q (use a fraction, 0.25 = 25%%): %w", args[1], perr)
				}
				result, err = svc.UpsertMarkup(cmd.Context(), revisionID, core.MarkupInput{MarkupPct: pct, AllowPerWBS: perWBS})
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Rule == nil {
				fmt.Fprintf(out, "Revision %d has no markup rule.\n", revisionID)
				return nil
			}
			fmt.Fprintf(out, "Revision %d markup: %s (%s%%, per-WBS overrides: %t)\n",
				revisionID, result.Rule.MarkupPct.String(), result.Rule.MarkupPct.Shift(2).String(), result.Rule.AllowPerWBS)
			return nil
		},
	}
	cmd.Flags().BoolVar(&perWBS, "per-wbs", false, "Allow per-WBS markup overrides")
	return cmd
}

func summaryCmd(open ServiceFunc) *cobra.Command {
	var linesFile, asOf string
	cmd := &cobra.Command{
		Use:   "summary <revision-id> --lines <file.json>",
		Short: "Price budget lines and apply the revision markup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			revisionID, err := parseID("revision-id", args[0])
			if err != nil {
				return err
			}
			lines, err := readLines(linesFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			svc, err := open()
			if err != nil {
				return err
			}
			result, err := svc.ComputeSummary(cmd.Context(), app.SummaryRequest{RevisionID: revisionID, AsOf: asOf, Lines: lines})
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), result.Summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&linesFile, "lines", "-", "JSON array of lines; - reads stdin")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date YYYY-MM-DD (default today)")
	return cmd
}

func promoteCmd(open ServiceFunc) *cobra.Command {
	var linesFile, asOf string
	cmd := &cobra.Command{
		Use:   "promote <revision-id>",
		Short: "Create a project from an APPROVED revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			revisionID, err := parseID("revision-id", args[0])
			if err != nil {
				return err
			}
			req := app.PromoteRequest{RevisionID: revisionID, AsOf: asOf}
			if linesFile != "" {
				if req.Lines, err = readLines(linesFile, cmd.InOrStdin()); err != nil {
					return err
				}
			}
			svc, err := open()
			if err != nil {
				return err
			}
			result, err := svc.Promote(cmd.Context(), req)
			if err != nil {
				return promotionHint(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project %d created: %s, contract value %s.\n",
				result.Project.ID, result.Project.OrderNumber, result.Project.ContractValue.StringFixed(2))
			return nil
		},
	}
	cmd.Flags().StringVar(&linesFile, "lines", "", "JSON array of lines used for the contract value; - reads stdin")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Reference date YYYY-MM-DD (default today)")
	return cmd
}

// promotionHint adds the recovery step to failures that leave state behind.
func promotionHint(err error) error {
	var linkErr *core.LinkError
	if errors.As(err, &linkErr) && linkErr.Project != nil {
		return fmt.Errorf("%w\nproject %d (%s) exists; run: relink %d %d",
			err, linkErr.Project.ID, linkErr.Project.OrderNumber, linkErr.RevisionID, linkErr.Project.ID)
	}
	return err
}

func relinkCmd(open ServiceFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "relink <revision-id> <project-id>",
		Short: "Retry the link step of a promotion that failed after creating the project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			revisionID, err := parseID("revision-id", args[0])
			if err != nil {
				return err
			}
			projectID, err := parseID("project-id", args[1])
			if err != nil {
				return err
			}
			svc, err := open()
			if err != nil {
				return err
			}
			result, err := svc.RetryLink(cmd.Context(), revisionID, projectID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revision %d linked to project %d (%s).\n",
				revisionID, result.Project.ID, result.Project.OrderNumber)
			return nil
		},
	}
}

func importCmd(open ServiceFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Create pricebooks and entries from an import document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc app.PricebookImport
			if err := readJSON(args[0], cmd.InOrStdin(), &doc); err != nil {
				return err
			}
			svc, err := open()
			if err != nil {
				return err
			}
			result, err := svc.ImportPricebooks(cmd.Context(), doc)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, pb := range result.Pricebooks {
				fmt.Fprintf(out, "  #%-5d %-8s %s\n", pb.ID, pb.Type, pb.Name)
			}
			fmt.Fprintf(out, "Imported %d pricebook(s), %d entr(ies).\n", len(result.Pricebooks), result.Entries)
			return nil
		},
	}
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the pricebook import document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeSchema(cmd.OutOrStdout())
		},
	}
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// ImportSchema reflects the JSON Schema of app.PricebookImport.
func ImportSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == decimalType {
				return &jsonschema.Schema{Type: "string", Pattern: `^-?[0-9]+(\.[0-9]+)?$`}
			}
			return nil
		},
	}
	s := r.Reflect(&app.PricebookImport{})
	s.Title = "Pricebook import"
	return s
}

func writeSchema(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ImportSchema())
}

func parseID(name, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return id, nil
}

func optionalInt(cmd *cobra.Command, flag string, v int) *int {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &v
}

func readLines(path string, stdin io.Reader) ([]app.LineInput, error) {
	var lines []app.LineInput
	if err := readJSON(path, stdin, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func readJSON(path string, stdin io.Reader, v any) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}
