package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mytwin/twin-admin/internal/console"
)

// AppViewsCmd manages AppViews.
type AppViewsCmd struct {
	List    AppViewsListCmd    `cmd:"" default:"1" help:"List AppViews"`
	Get     AppViewsGetCmd     `cmd:"" help:"Show an AppView"`
	Create  AppViewsCreateCmd  `cmd:"" help:"Create an AppView"`
	Update  AppViewsUpdateCmd  `cmd:"" help:"Update an AppView"`
	Delete  AppViewsDeleteCmd  `cmd:"" help:"Delete an AppView"`
	Assign  AppViewsAssignCmd  `cmd:"" help:"Assign an AppView to users"`
	Catalog AppViewsCatalogCmd `cmd:"" help:"List the known applications and profile modules"`
}

type AppViewsListCmd struct {
	OutputFlag `embed:""`
}

func (c *AppViewsListCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	views, err := cons.Service().AppViews(ctx)
	if err != nil {
		return fmt.Errorf("failed to list app views: %w", err)
	}

	return c.render(globals.stdout(), views, func(tw *tabwriter.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(tw, "No app views found.")
			return
		}
		fmt.Fprintln(tw, "UUID\tNAME\tAPPLICATIONS\tPROFILE")
		for _, v := range views {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.UUID, v.Name, itemList(v.Applications), itemList(v.Profile))
		}
	})
}

type AppViewsGetCmd struct {
	ID         string `arg:"" help:"AppView UUID"`
	OutputFlag `embed:""`
}

func (c *AppViewsGetCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	view, err := cons.Service().AppView(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to get app view: %w", err)
	}

	return c.render(globals.stdout(), view, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "UUID:\t%s\n", view.UUID)
		fmt.Fprintf(tw, "Name:\t%s\n", view.Name)
		fmt.Fprintln(tw, "Applications:")
		for _, item := range view.Applications {
			fmt.Fprintf(tw, "  %d.\t%s\n", item.Order, item.ID)
		}
		fmt.Fprintln(tw, "Profile:")
		for _, item := range view.Profile {
			fmt.Fprintf(tw, "  %d.\t%s\n", item.Order, item.ID)
		}
	})
}

// AppViewFields are the definition flags shared by create and update. Module
// lists are given in display order.
type AppViewFields struct {
	Name         string   `help:"AppView name (at least 3 characters)"`
	Applications []string `name:"application" short:"a" help:"Application module, repeat in display order"`
	Profile      []string `name:"profile" short:"p" help:"Profile module, repeat in display order"`
	File         string   `short:"f" help:"YAML or JSON definition file" type:"existingfile"`
}

// definition merges the file, if any, with the flags; flags win.
func (f AppViewFields) definition() (console.AppViewDefinition, error) {
	var def console.AppViewDefinition
	if f.File != "" {
		loaded, err := console.LoadAppViewDefinition(f.File)
		if err != nil {
			return def, err
		}
		def = *loaded
	}
	if f.Name != "" {
		def.Name = f.Name
	}
	if len(f.Applications) > 0 {
		def.Applications = f.Applications
	}
	if len(f.Profile) > 0 {
		def.Profile = f.Profile
	}
	return def, nil
}

type AppViewsCreateCmd struct {
	AppViewFields `embed:""`
}

func (c *AppViewsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	def, err := c.definition()
	if err != nil {
		return err
	}
	in, err := def.Input()
	if err != nil {
		return err
	}

	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	warnUnknownModules(in.Applications, in.Profile)

	view, err := cons.Service().CreateAppView(ctx, *in)
	if err != nil {
		return fmt.Errorf("failed to create app view: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "AppView %s created (%s).\n", view.Name, view.UUID)
	return nil
}

type AppViewsUpdateCmd struct {
	ID            string `arg:"" help:"AppView UUID"`
	AppViewFields `embed:""`
}

func (c *AppViewsUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	def, err := c.definition()
	if err != nil {
		return err
	}

	in := console.UpdateAppViewInput{
		Name:         def.Name,
		Applications: console.ItemsFromIDs(def.Applications),
		Profile:      console.ItemsFromIDs(def.Profile),
	}
	if err := in.Validate(); err != nil {
		return err
	}

	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	warnUnknownModules(in.Applications, in.Profile)

	view, err := cons.Service().UpdateAppView(ctx, c.ID, in)
	if err != nil {
		return fmt.Errorf("failed to update app view: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "AppView %s updated.\n", view.UUID)
	return nil
}

type AppViewsDeleteCmd struct {
	ID  string `arg:"" help:"AppView UUID"`
	Yes bool   `short:"y" help:"Skip confirmation"`
}

func (c *AppViewsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	if err := confirm(c.Yes, fmt.Sprintf("Delete app view %s?", c.ID)); err != nil {
		return err
	}

	if err := cons.Service().DeleteAppView(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to delete app view: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "AppView %s deleted.\n", c.ID)
	return nil
}

type AppViewsAssignCmd struct {
	ID    string   `arg:"" help:"AppView UUID"`
	Users []string `arg:"" help:"UUIDs of the users to assign"`
}

func (c *AppViewsAssignCmd) Run(ctx context.Context, globals *Globals) error {
	if len(c.Users) == 0 {
		return errors.New("at least one user is required")
	}

	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	if err := cons.Service().AssignAppViewToUsers(ctx, c.ID, c.Users); err != nil {
		return fmt.Errorf("failed to assign app view: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "AppView assigned to %d user(s).\n", len(c.Users))
	return nil
}

type AppViewsCatalogCmd struct {
	OutputFlag `embed:""`
}

func (c *AppViewsCatalogCmd) Run(ctx context.Context, globals *Globals) error {
	catalog := console.DefaultCatalog()

	return c.render(globals.stdout(), catalog, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "Applications:\t%s\n", strings.Join(catalog.Applications, ", "))
		fmt.Fprintf(tw, "Profiles:\t%s\n", strings.Join(catalog.Profiles, ", "))
	})
}

// warnUnknownModules notes ids outside the catalog. They are still sent.
func warnUnknownModules(applications, profile []console.AppViewItem) {
	catalog := console.DefaultCatalog()
	if ids := catalog.UnknownApplications(applications); len(ids) > 0 {
		fmt.Fprintf(os.Stderr, "Note: custom applications %s\n", strings.Join(ids, ", "))
	}
	if ids := catalog.UnknownProfiles(profile); len(ids) > 0 {
		fmt.Fprintf(os.Stderr, "Note: custom profile modules %s\n", strings.Join(ids, ", "))
	}
}

func itemList(items []console.AppViewItem) string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return strings.Join(ids, ", ")
}
