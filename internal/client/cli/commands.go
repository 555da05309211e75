package cli

import (
	"context"
	"fmt"
	"os"
)

func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		return err
	}

	id, err := a.api.Register(ctx, email, password)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	a.pendingUserID = id
	printlnFn("Registered. Check your inbox and run 'verify' with the emailed code.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		return err
	}

	outcome, err := a.api.Login(ctx, email, password)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	if outcome.NeedsVerification {
		a.pendingUserID = outcome.UserID
		printlnFn("You are not verified. A new code was emailed, run 'verify' to continue.")
		return nil
	}

	a.user = outcome.User
	a.token = outcome.Token
	printlnFn("Success!")
	return nil
}

func (a *App) Verify(ctx context.Context) error {
	if a.pendingUserID == "" {
		printlnFn("Nothing to verify. Register or login first.")
		return nil
	}

	otp, err := GetSimpleText(a.reader, "Enter the 6-digit code from the email", os.Stdout)
	if err != nil {
		return err
	}

	user, token, err := a.api.Verify(ctx, a.pendingUserID, otp)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	a.user = user
	a.token = token
	a.pendingUserID = ""
	printlnFn("Email verified, you are logged in.")
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	if a.pendingUserID == "" {
		printlnFn("Nothing to resend. Register or login first.")
		return nil
	}

	msg, err := a.api.Regenerate(ctx, a.pendingUserID)
	if err != nil {
		printlnFn(err.Error())
		return err
	}

	printlnFn(msg)
	return nil
}

func (a *App) Whoami(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Not logged in.")
		return nil
	}
	printlnFn(fmt.Sprintf("%s (id %s, verified=%t)", a.user.Email, a.user.ID, a.user.EmailVerified))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.user = nil
	a.token = ""
	printlnFn("Logged out.")
	return nil
}
