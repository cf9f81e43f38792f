package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/contacts"
	"github.com/Ramsey-B/fern/pkg/models"
)

// errUndecided is returned when matches were found but nobody decided
var errUndecided = errors.New("matching contacts found and nothing was saved; rerun with --decision save|replace|merge|abort")

func newContactsCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"contact", "c"},
		Short:   "Manage stored contacts",
	}

	cmd.AddCommand(
		newContactsListCommand(cc),
		newContactsShowCommand(cc),
		newContactsExportCommand(cc),
		newContactsMatchCommand(cc),
		newContactsAddCommand(cc),
		newContactsDeleteCommand(cc),
	)
	return cmd
}

// withService starts the store and lock for a single command
func (c *commandContext) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *contacts.Service) error) error {
	a := newApp(c.config, c.logger, true)
	if err := a.start(cmd.Context()); err != nil {
		return err
	}
	defer a.stop(context.Background())

	return fn(cmd.Context(), a.service)
}

func newContactsListCommand(cc *commandContext) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withService(cmd, func(ctx context.Context, svc *contacts.Service) error {
				items, err := svc.List(ctx, search)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No contacts")
					return nil
				}
				fmt.Fprintln(out, contactsTable(items))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name, company, email or phone")
	return cmd
}

func newContactsShowCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withService(cmd, func(ctx context.Context, svc *contacts.Service) error {
				c, err := svc.Get(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), contactDetail(c))
				return nil
			})
		},
	}
}

func newContactsExportCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <id>",
		Short: "Print a contact in address book form as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withService(cmd, func(ctx context.Context, svc *contacts.Service) error {
				device, err := svc.Export(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(device)
			})
		},
	}
}

func newContactsDeleteCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withService(cmd, func(ctx context.Context, svc *contacts.Service) error {
				if err := svc.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted contact %s\n", args[0])
				return nil
			})
		},
	}
}

// contactFlags collects a candidate contact from the command line
type contactFlags struct {
	req       models.CreateContactRequest
	source    string
	imagePath string
}

func (f *contactFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.req.Name, "name", "", "Full name")
	fs.StringVar(&f.req.Title, "title", "", "Job title")
	fs.StringVar(&f.req.Company, "company", "", "Company")
	fs.StringVar(&f.req.Email, "email", "", "Email address")
	fs.StringVar(&f.req.Phone, "phone", "", "Phone number")
	fs.StringVar(&f.req.Website, "website", "", "Website")
	fs.StringVar(&f.req.Address, "address", "", "Postal address")
	fs.StringVar(&f.req.Notes, "notes", "", "Notes")
	fs.StringVar(&f.req.RawScan, "raw-scan", "", "Raw text captured from the card")
	fs.StringVar(&f.source, "source", string(models.ProvenanceManual), "How the card was captured: camera, qr or manual")
	fs.StringVar(&f.imagePath, "image", "", "Path to a card image")
}

func (f *contactFlags) candidate(svc *contacts.Service) (models.Contact, error) {
	req := f.req
	req.Source = models.Provenance(strings.ToLower(f.source))
	if f.imagePath != "" {
		image, err := os.ReadFile(f.imagePath)
		if err != nil {
			return models.Contact{}, fmt.Errorf("failed to read image: %w", err)
		}
		req.Image = image
	}
	return req.ToContact(svc.Now()), nil
}

func newContactsMatchCommand(cc *commandContext) *cobra.Command {
	var flags contactFlags
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show stored contacts that look like the given one, without saving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cc.withService(cmd, func(ctx context.Context, svc *contacts.Service) error {
				candidate, err := flags.candidate(svc)
				if err != nil {
					return err
				}
				matches, err := svc.FindMatches(ctx, candidate)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(matches) == 0 {
					fmt.Fprintln(out, "No matching contacts")
					return nil
				}
				fmt.Fprintln(out, matchesTable(matches))
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newContactsAddCommand(cc *commandContext) *cobra.Command {
	var (
		flags    contactFlags
		decision string
		target   string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a contact, resolving duplicates",
		Long: `Save a contact. When stored contacts match, the decision flag picks what happens:
save keeps both, replace overwrites the target, merge folds the new details into
the target and abort saves nothing. Without a decision an interactive terminal
is prompted; otherwise nothing is saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var preset *models.Decision
			if decision != "" {
				d, err := parseDecision(decision, target)
				if err != nil {
					return err
				}
				preset = &d
			}

			return cc.withService(cmd, func(ctx context.Context, svc *contacts.Service) error {
				candidate, err := flags.candidate(svc)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				// a complete decision runs in one exclusive section
				if preset != nil && (!preset.Kind.NeedsTarget() || preset.TargetID != "") {
					resp, err := svc.Resolve(ctx, candidate, preset)
					if err != nil {
						return err
					}
					printResolution(out, resp)
					return nil
				}

				resp, err := svc.Begin(ctx, candidate)
				if err != nil {
					return err
				}
				if resp.State == models.StateDone {
					printResolution(out, resp)
					return nil
				}

				fmt.Fprintf(out, "Found %d possible duplicate(s):\n%s\n", len(resp.Matches), matchesTable(resp.Matches))

				var chosen models.Decision
				switch {
				case preset != nil:
					chosen = *preset
					chosen.TargetID = resp.BestMatch.Contact.ID
				case cc.interactive():
					chosen = promptDecision(cmd.InOrStdin(), out, resp.Matches)
				default:
					chosen = models.Abort()
				}

				done, err := svc.Decide(ctx, resp.ID, chosen)
				if err != nil {
					return err
				}
				printResolution(out, done)

				if preset == nil && !cc.interactive() {
					return errUndecided
				}
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&decision, "decision", "", "What to do when duplicates are found: save, replace, merge or abort")
	cmd.Flags().StringVar(&target, "target", "", "Contact id to replace or merge into (default: best match)")
	return cmd
}

func parseDecision(kind, target string) (models.Decision, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "save", "new", string(models.ResolutionSaveAsNew):
		return models.SaveAsNew(), nil
	case string(models.ResolutionReplace):
		return models.Replace(target), nil
	case string(models.ResolutionMerge):
		return models.Merge(target), nil
	case string(models.ResolutionAbort):
		return models.Abort(), nil
	default:
		return models.Decision{}, fmt.Errorf("unknown decision %q: use save, replace, merge or abort", kind)
	}
}

func printResolution(out io.Writer, resp models.ResolutionResponse) {
	outcome := resp.Outcome
	if outcome == nil {
		return
	}

	switch outcome.Kind {
	case models.ResolutionSaveAsNew:
		fmt.Fprintf(out, "Saved contact %s\n", outcome.TargetID)
	case models.ResolutionReplace:
		fmt.Fprintf(out, "Replaced contact %s\n", outcome.TargetID)
	case models.ResolutionMerge:
		fmt.Fprintf(out, "Merged into contact %s\n", outcome.TargetID)
	case models.ResolutionAbort:
		fmt.Fprintln(out, "Aborted, nothing was saved")
		return
	}

	if outcome.Contact != nil {
		fmt.Fprintln(out, contactDetail(*outcome.Contact))
	}
}
