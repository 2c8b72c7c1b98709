package main

import (
	"context"
	"fmt"

	"github.com/docopt/docopt-go"

	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/session"
)

func (a *app) login(ctx context.Context, opts docopt.Opts) error {
	email, _ := opts.String("<email>")
	password, err := a.password(opts)
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) register(ctx context.Context, opts docopt.Opts) error {
	nombre, _ := opts.String("<nombre>")
	email, _ := opts.String("<email>")
	password, err := a.password(opts)
	if err != nil {
		return err
	}

	user, err := a.session.Register(ctx, nombre, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account created. Logged in as %s <%s>\n", user.Name, user.Email)
	return nil
}

// password takes --password or prompts for it.
func (a *app) password(opts docopt.Opts) (string, error) {
	if p, err := opts.String("--password"); err == nil && p != "" {
		return p, nil
	}
	fmt.Fprint(a.out, "Password: ")
	return a.readLine()
}

func (a *app) logout(ctx context.Context, _ docopt.Opts) error {
	if _, ok := a.session.Current(); !ok {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	if err := a.editor.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) whoami(ctx context.Context, _ docopt.Opts) error {
	if _, ok := a.session.Current(); !ok {
		return session.ErrNotLoggedIn
	}
	me, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>\n", me.Name, me.Email)
	return nil
}

func (a *app) profile(ctx context.Context, opts docopt.Opts) error {
	if _, ok := a.session.Current(); !ok {
		return session.ErrNotLoggedIn
	}

	var name, password *string
	if v, err := opts.String("--name"); err == nil {
		name = &v
	}
	if v, err := opts.String("--password"); err == nil {
		password = &v
	}
	if name == nil && password == nil {
		return domainerrors.Validation("nothing to update: pass --name or --password")
	}

	me, err := a.client.UpdateProfile(ctx, name, password)
	if err != nil {
		return err
	}
	if err := a.session.UpdateUser(ctx, session.User{ID: me.ID, Name: me.Name, Email: me.Email}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Profile updated: %s <%s>\n", me.Name, me.Email)
	return nil
}
