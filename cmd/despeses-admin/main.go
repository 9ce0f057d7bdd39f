// Command despeses-admin bootstraps accounts and inspects the dataset
// tree without going through the web UI.
//
// Usage:
//
//	despeses-admin create-user -username pere -name "Pere"
//	despeses-admin resolve -user pere -date 2025-07-15 -file debts.csv
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"despeses/internal/cli"
	"despeses/internal/config"
	"despeses/internal/core"
	"despeses/internal/datasets"
	"despeses/internal/period"
	"despeses/internal/services"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, logger := cli.Bootstrap("despeses-admin")

	switch os.Args[1] {
	case "create-user":
		createUser(cfg, logger, os.Args[2:])
	case "resolve":
		resolve(cfg, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: despeses-admin <command> [flags]

commands:
  create-user   create an account (-username, -name; password is prompted)
  resolve       print dataset paths for a user and date (-user, -date, -file)`)
}

func createUser(cfg *config.Config, logger *slog.Logger, args []string) {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	username := fs.String("username", "", "account username (lowercase, also the dataset directory name)")
	name := fs.String("name", "", "display name")
	fs.Parse(args)

	if *username == "" || *name == "" {
		fs.Usage()
		os.Exit(2)
	}

	password, err := readPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "read password:", err)
		os.Exit(1)
	}

	repo := cli.OpenRepository(logger, cfg.DBPath)
	defer repo.Close()

	auth := services.NewAuthService(repo)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := auth.Register(ctx, *username, *name, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create user:", err)
		os.Exit(1)
	}
	fmt.Printf("created user %s (id %d)\n", user.Username, user.ID)
}

// readPassword prompts on a terminal without echoing; when stdin is a
// pipe it reads one line instead, so scripted bootstraps keep working.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func resolve(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	user := fs.String("user", "", "username whose dataset tree to inspect")
	date := fs.String("date", time.Now().Format("2006-01-02"), "reference date, YYYY-MM-DD")
	file := fs.String("file", datasets.DebtsFile, "dataset filename")
	fs.Parse(args)

	if *user == "" {
		fs.Usage()
		os.Exit(2)
	}
	if err := core.ValidateUsername(*user); err != nil {
		fmt.Fprintln(os.Stderr, "resolve:", err)
		os.Exit(1)
	}

	d, err := core.ParseDate(*date)
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolve: bad date:", err)
		os.Exit(1)
	}

	r := period.NewResolver(filepath.Join(cfg.DataRoot, *user))

	canonical := r.CanonicalPath(d.Time, *file)
	fmt.Printf("period:    %s\n", core.PeriodOf(d.Time))
	fmt.Printf("canonical: %s\n", canonical)
	if _, err := os.Stat(canonical); err == nil {
		fmt.Println("exists:    yes")
	} else {
		fmt.Println("exists:    no")
	}

	match, found, err := r.FindPrevious(d.Time, *file)
	if err != nil {
		fmt.Fprintln(os.Stderr, "resolve: find previous:", err)
		os.Exit(1)
	}
	if !found {
		fmt.Println("previous:  none within lookback window")
		return
	}
	fmt.Printf("previous:  %s (%s)\n", match.Path, match.Period)
}
