// edugate-admin manages EduGate accounts directly against the database.
//
// Usage:
//
//	edugate-admin [-config path] [-db path] <command> [flags]
//
// Commands:
//
//	hash          print an Argon2id hash for a password read from the terminal
//	create        create an account with a role
//	list          list accounts
//	set-active    enable or disable an account
//	set-password  replace an account's password
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	_ "github.com/nerrad567/edugate-core/migrations"

	"github.com/nerrad567/edugate-core/internal/auth"
	"github.com/nerrad567/edugate-core/internal/infrastructure/config"
	"github.com/nerrad567/edugate-core/internal/infrastructure/database"
	"golang.org/x/term"
)

const defaultConfigPath = "configs/config.yaml"

// minPasswordLength applies to passwords set through this tool.
const minPasswordLength = 8

// Terminal seams, replaced in tests.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

var errUsage = errors.New("usage: edugate-admin [-config path] [-db path] <hash|create|list|set-active|set-password> [flags]")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	in  *bufio.Reader
	fd  int
	out io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	global := flag.NewFlagSet("edugate-admin", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configPath := global.String("config", getConfigPath(), "config file path")
	dbPath := global.String("db", "", "database path (skips config loading)")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if global.NArg() == 0 {
		return errUsage
	}

	c := &cli{in: bufio.NewReader(stdin), fd: -1, out: stdout}
	if f, ok := stdin.(*os.File); ok {
		c.fd = int(f.Fd())
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	if cmd == "hash" {
		return c.hash()
	}

	open := func() (*database.DB, error) {
		return openDatabase(ctx, *configPath, *dbPath)
	}
	switch cmd {
	case "create":
		return c.create(ctx, open, rest)
	case "list":
		return c.list(ctx, open)
	case "set-active":
		return c.setActive(ctx, open, rest)
	case "set-password":
		return c.setPassword(ctx, open, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func getConfigPath() string {
	if path := os.Getenv("EDUGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openDatabase opens and migrates the account database. An explicit dbPath
// skips config loading, so the tool works without a token secret.
func openDatabase(ctx context.Context, configPath, dbPath string) (*database.DB, error) {
	dbCfg := config.Default().Database
	if dbPath != "" {
		dbCfg.Path = dbPath
	} else {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		dbCfg = cfg.Database
	}

	db, err := database.Open(ctx, database.ConfigFrom(dbCfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

type opener func() (*database.DB, error)

func (c *cli) hash() error {
	password, err := c.newPassword()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	fmt.Fprintln(c.out, hash)
	return nil
}

func (c *cli) create(ctx context.Context, open opener, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("username", "", "login name")
	roleName := fs.String("role", string(auth.RoleStudent), "ADMIN, TEACHER, STUDENT or STAKEHOLDER")
	email := fs.String("email", "", "contact email")
	inactive := fs.Bool("inactive", false, "create the account disabled")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if !auth.IsValidUsername(*username) {
		return fmt.Errorf("create: %w: %q", auth.ErrInvalidUsername, *username)
	}
	role, err := auth.ParseRole(*roleName)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	password, err := c.newPassword()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	db, err := open()
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // CLI exit

	cred := &auth.Credential{
		Username:     *username,
		PasswordHash: hash,
		Active:       !*inactive,
		Email:        *email,
	}
	if err := auth.NewAccountRepository(db.DB).CreateAccountWithRole(ctx, cred, role); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	fmt.Fprintf(c.out, "created %s (%s) account_id=%s\n", cred.Username, role, cred.AccountID)
	return nil
}

func (c *cli) list(ctx context.Context, open opener) error {
	db, err := open()
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // CLI exit

	accounts, err := auth.NewAccountRepository(db.DB).List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tACTIVE\tEMAIL\tACCOUNT")
	for _, a := range accounts {
		role := string(a.Role)
		if role == "" {
			role = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", a.Username, role, a.Active, a.Email, a.AccountID)
	}
	return w.Flush()
}

func (c *cli) setActive(ctx context.Context, open opener, args []string) error {
	fs := flag.NewFlagSet("set-active", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("username", "", "login name")
	active := fs.Bool("active", true, "enable (true) or disable (false)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("set-active: %w", err)
	}
	if *username == "" {
		return errors.New("set-active: -username is required")
	}

	db, err := open()
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // CLI exit

	if err := auth.NewAccountRepository(db.DB).SetActive(ctx, *username, *active); err != nil {
		return fmt.Errorf("set-active: %w", err)
	}
	fmt.Fprintf(c.out, "%s active=%t\n", *username, *active)
	return nil
}

func (c *cli) setPassword(ctx context.Context, open opener, args []string) error {
	fs := flag.NewFlagSet("set-password", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("username", "", "login name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("set-password: %w", err)
	}
	if *username == "" {
		return errors.New("set-password: -username is required")
	}

	password, err := c.newPassword()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	db, err := open()
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // CLI exit

	if err := auth.NewAccountRepository(db.DB).UpdatePassword(ctx, *username, hash); err != nil {
		return fmt.Errorf("set-password: %w", err)
	}
	fmt.Fprintf(c.out, "password updated for %s\n", *username)
	return nil
}

// newPassword prompts twice on a terminal. Piped input is read as a single line.
func (c *cli) newPassword() (string, error) {
	if c.fd < 0 || !isTerminal(c.fd) {
		line, err := c.in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return checkPassword(strings.TrimRight(line, "\r\n"))
	}

	first, err := c.prompt("Password: ")
	if err != nil {
		return "", err
	}
	second, err := c.prompt("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return checkPassword(first)
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	pw, err := readPassword(c.fd)
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

func checkPassword(p string) (string, error) {
	if len(p) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return p, nil
}
