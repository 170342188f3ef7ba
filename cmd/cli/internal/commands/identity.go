package commands

import (
	"context"
	"fmt"

	"github.com/mytwin/twin-admin/internal/console"
)

// IdentityCmd manages user identities.
type IdentityCmd struct {
	Create IdentityCreateCmd `cmd:"" help:"Create the identity of a user"`
	Update IdentityUpdateCmd `cmd:"" help:"Update an identity"`
	Delete IdentityDeleteCmd `cmd:"" help:"Delete an identity"`
}

// IdentityFields are the optional identity flags shared by create and update.
type IdentityFields struct {
	BirthDate     string `name:"birth-date" help:"Birth date (YYYY-MM-DD)"`
	BirthCity     string `name:"birth-city" help:"Birth city"`
	City          string `help:"City"`
	Country       string `help:"Country"`
	BiologicalSex string `name:"sex" help:"Biological sex (male or female)"`
}

type IdentityCreateCmd struct {
	UserID         string `arg:"" name:"user" help:"User UUID"`
	FirstName      string `name:"first-name" help:"First name" required:""`
	LastName       string `name:"last-name" help:"Last name" required:""`
	IdentityFields `embed:""`
}

func (c *IdentityCreateCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	identity, err := cons.Service().CreateIdentity(ctx, c.UserID, console.CreateIdentityInput{
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		BirthDate:     c.BirthDate,
		BirthCity:     c.BirthCity,
		City:          c.City,
		Country:       c.Country,
		BiologicalSex: c.BiologicalSex,
	})
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "Identity %s created for user %s.\n", identity.UUID, c.UserID)
	return nil
}

type IdentityUpdateCmd struct {
	ID             string `arg:"" help:"Identity UUID"`
	FirstName      string `name:"first-name" help:"First name"`
	LastName       string `name:"last-name" help:"Last name"`
	IdentityFields `embed:""`
}

func (c *IdentityUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	identity, err := cons.Service().UpdateIdentity(ctx, c.ID, console.UpdateIdentityInput{
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		BirthDate:     c.BirthDate,
		BirthCity:     c.BirthCity,
		City:          c.City,
		Country:       c.Country,
		BiologicalSex: c.BiologicalSex,
	})
	if err != nil {
		return fmt.Errorf("failed to update identity: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "Identity %s updated.\n", identity.UUID)
	return nil
}

type IdentityDeleteCmd struct {
	ID  string `arg:"" help:"Identity UUID"`
	Yes bool   `short:"y" help:"Skip confirmation"`
}

func (c *IdentityDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	cons, err := globals.Authorized(ctx)
	if err != nil {
		return err
	}

	if err := confirm(c.Yes, fmt.Sprintf("Delete identity %s?", c.ID)); err != nil {
		return err
	}

	if err := cons.Service().DeleteIdentity(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}

	fmt.Fprintf(globals.stdout(), "Identity %s deleted.\n", c.ID)
	return nil
}
