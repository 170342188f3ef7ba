package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/mytwin/twin-admin/internal/console"
)

// UsersCmd manages platform users.
type UsersCmd struct {
	List   UsersListCmd   `cmd:"" default:"1" help:"List users"`
	Get    UsersGetCmd    `cmd:"" help:"Show a user"`
	Create UsersCreateCmd `cmd:"" help:"Create a user and its identity"`
	Update UsersUpdateCmd `cmd:"" help:"Change the username of the logged in account"`
	Delete UsersDeleteCmd `cmd:"" help:"Delete a user"`
}

type UsersListCmd struct {
	OutputFlag `embed:""`
}

func (c *UsersListCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	users, err := cons.Service().Users(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	return c.render(globals.stdout(), users, func(tw *tabwriter.Writer) {
		if len(users) == 0 {
			fmt.Fprintln(tw, "No users found.")
			return
		}
		fmt.Fprintln(tw, "UUID\tUSERNAME\tROLE\tLANG\tAPP VIEW")
		for _, u := range users {
			lang, view := "", ""
			if p := u.Preferences; p != nil {
				lang = p.DefaultLang
				view = p.AppViewID
				if p.AppView != nil && p.AppView.Name != "" {
					view = p.AppView.Name
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.UUID, u.Username, u.Role, lang, view)
		}
	})
}

type UsersGetCmd struct {
	ID         string `arg:"" help:"User UUID"`
	OutputFlag `embed:""`
}

func (c *UsersGetCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	user, err := cons.Service().User(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	return c.render(globals.stdout(), user, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "UUID:\t%s\n", user.UUID)
		fmt.Fprintf(tw, "Username:\t%s\n", user.Username)
		fmt.Fprintf(tw, "Role:\t%s\n", user.Role)
		if p := user.Preferences; p != nil {
			fmt.Fprintf(tw, "Language:\t%s\n", p.DefaultLang)
			if p.AppView != nil {
				fmt.Fprintf(tw, "App view:\t%s (%s)\n", p.AppView.Name, p.AppView.UUID)
				fmt.Fprintf(tw, "Applications:\t%s\n", itemList(p.AppView.Applications))
				fmt.Fprintf(tw, "Profile:\t%s\n", itemList(p.AppView.Profile))
			}
		}
	})
}

type UsersCreateCmd struct {
	Username    string `arg:"" help:"Username (at least 3 characters)"`
	Password    string `help:"Password (at least 6 characters)" env:"TWIN_ADMIN_NEW_USER_PASSWORD" required:""`
	Role        string `help:"Role" default:"user"`
	DefaultLang string `name:"lang" help:"Default language" default:"fr"`
	AppView     string `name:"app-view" help:"UUID of the AppView to assign"`

	FirstName     string `name:"first-name" help:"First name" required:""`
	LastName      string `name:"last-name" help:"Last name" required:""`
	BirthDate     string `name:"birth-date" help:"Birth date (YYYY-MM-DD)"`
	BirthCity     string `name:"birth-city" help:"Birth city"`
	City          string `help:"City"`
	Country       string `help:"Country"`
	BiologicalSex string `name:"sex" help:"Biological sex (male or female)"`
}

func (c *UsersCreateCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	user, identity, err := cons.Service().CreateUserWithIdentity(ctx,
		console.CreateUserInput{
			Username:    c.Username,
			Password:    c.Password,
			Role:        c.Role,
			DefaultLang: c.DefaultLang,
			AppViewID:   c.AppView,
		},
		console.CreateIdentityInput{
			FirstName:     c.FirstName,
			LastName:      c.LastName,
			BirthDate:     c.BirthDate,
			BirthCity:     c.BirthCity,
			City:          c.City,
			Country:       c.Country,
			BiologicalSex: c.BiologicalSex,
		},
	)
	if err != nil {
		if user != nil {
			fmt.Fprintf(globals.stdout(), "User %s created (%s).\n", user.Username, user.UUID)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "User %s created (%s) with identity %s.\n", user.Username, user.UUID, identity.UUID)
	return nil
}

type UsersUpdateCmd struct {
	Username string `arg:"" help:"New username"`
}

func (c *UsersUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	user, err := cons.Service().UpdateUser(ctx, console.UpdateUserInput{Username: c.Username})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "User %s renamed to %s.\n", user.UUID, user.Username)
	return nil
}

type UsersDeleteCmd struct {
	ID  string `arg:"" help:"User UUID"`
	Yes bool   `short:"y" help:"Skip confirmation"`
}

func (c *UsersDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	if err := confirm(c.Yes, fmt.Sprintf("Delete user %s?", c.ID)); err != nil {
		return err
	}

	if err := cons.Service().DeleteUser(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "User %s deleted.\n", c.ID)
	return nil
}
