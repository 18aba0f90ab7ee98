package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var errUnknownCommand = errors.New("unknown command")

const helpText = "Available commands: register, login, check, refresh, logout, verify-email, send-otp, verify-otp, change-password, exit"

// runREPL reads commands line by line until EOF, "exit" or "quit". Command
// errors are printed and the loop carries on.
//
// Lines are read from a.reader so that commands prompting for input share
// its buffer.
func runREPL(ctx context.Context, a *App) {
	for {
		fmt.Fprint(a.out, "auth> ")
		line, err := a.reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			if err := a.exec(ctx, cmd); err != nil {
				fmt.Fprintln(a.out, "Error:", err)
			}
		}
	}
}

func (a *App) exec(ctx context.Context, cmd string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(a.out, helpText)
		return nil
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "check":
		return a.Check(ctx)
	case "refresh":
		return a.Refresh(ctx)
	case "logout":
		return a.Logout(ctx)
	case "verify-email":
		return a.VerifyEmail(ctx)
	case "send-otp":
		return a.SendOTP(ctx)
	case "verify-otp":
		return a.VerifyOTP(ctx)
	case "change-password":
		return a.ChangePassword(ctx)
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}
