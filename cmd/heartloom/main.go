// Command heartloom is the local family photo-journal. It keeps one
// dataset file per installation and exposes the family, child, and entry
// operations as flag subcommands.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"heartloom/internal/config"
	"heartloom/internal/images"
	"heartloom/internal/models"
	"heartloom/internal/service"
	"heartloom/internal/settings"
	"heartloom/internal/store"
	"heartloom/internal/suggest"
)

type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	auth    *service.AuthService
	family  *service.FamilyService
	journal *service.JournalService
	email   *service.EmailService
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	st, err := store.Open(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("failed to open dataset", zap.Error(err))
	}

	set, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		logger.Fatal("failed to open settings store", zap.Error(err))
	}
	defer set.Close()

	img, err := images.Open(cfg.ImagesDir)
	if err != nil {
		logger.Fatal("failed to open image store", zap.Error(err))
	}
	defer img.Close()

	ctx := context.Background()
	email, err := service.NewEmailService(ctx, cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, logger)
	if err != nil {
		logger.Fatal("failed to initialize email service", zap.Error(err))
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		auth:    service.NewAuthService(st, set, logger),
		family:  service.NewFamilyService(st, logger),
		journal: service.NewJournalService(st, img, logger),
		email:   email,
	}

	switch os.Args[1] {
	case "signin":
		a.runSignIn(ctx, os.Args[2:])
	case "signout":
		a.runSignOut()
	case "whoami":
		a.runWhoami()
	case "family":
		a.runFamily(ctx, os.Args[2:])
	case "child":
		a.runChild(os.Args[2:])
	case "entry":
		a.runEntry(ctx, os.Args[2:])
	case "export":
		a.runExport(st, os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: heartloom <command> [flags]

Commands:
  signin   sign in with an external provider (or a raw identity token)
  signout  forget the remembered session
  whoami   show the signed-in user
  family   create | join | leave | remove | members | list | invite
  child    add | list
  entry    add | list
  export   write a copy of the dataset to a file`)
}

func (a *app) runSignIn(ctx context.Context, args []string) {
	cmd := flag.NewFlagSet("signin", flag.ExitOnError)
	provider := cmd.String("provider", "google", "identity provider (google or apple)")
	assertion := cmd.String("assertion", "", "signed identity token (skips the browser flow)")
	name := cmd.String("name", "", "display name to record")
	email := cmd.String("email", "", "email address to record")
	cmd.Parse(args)

	payload := service.SignInPayload{
		Assertion:   *assertion,
		DisplayName: *name,
		Email:       *email,
	}
	if payload.Assertion == "" {
		var err error
		payload, err = a.browserSignIn(ctx, *provider)
		if err != nil {
			a.fail("sign-in failed", err)
		}
		if *name != "" {
			payload.DisplayName = *name
		}
		if *email != "" {
			payload.Email = *email
		}
	}

	user, err := a.auth.SignIn(*provider, payload.Assertion, payload.DisplayName, payload.Email)
	if err != nil {
		a.fail("sign-in failed", err)
	}
	fmt.Printf("Signed in as %s (%s)\n", user.DisplayName, user.ID)
}

func (a *app) runSignOut() {
	if err := a.auth.SignOut(); err != nil {
		a.fail("sign-out failed", err)
	}
	fmt.Println("Signed out")
}

func (a *app) runWhoami() {
	user := a.auth.RestoreSession()
	if user == nil {
		fmt.Println("Not signed in")
		os.Exit(1)
	}
	fmt.Printf("%s <%s> via %s (%s)\n", user.DisplayName, user.Email, user.Provider, user.ID)
}

func (a *app) runFamily(ctx context.Context, args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "create":
		cmd := flag.NewFlagSet("family create", flag.ExitOnError)
		name := cmd.String("name", "", "family name (required)")
		cmd.Parse(args[1:])
		user := a.requireUser()
		family, err := a.family.CreateFamily(*name, user.ID)
		if err != nil {
			a.fail("could not create family", err)
		}
		fmt.Printf("Created family %q (%s)\nInvite code: %s\n", family.Name, family.ID, family.InviteCode)

	case "join":
		cmd := flag.NewFlagSet("family join", flag.ExitOnError)
		code := cmd.String("code", "", "invite code (required)")
		cmd.Parse(args[1:])
		user := a.requireUser()
		family, err := a.family.JoinFamily(*code, user.ID)
		if err != nil {
			a.fail("could not join family", err)
		}
		fmt.Printf("Joined family %q (%s)\n", family.Name, family.ID)

	case "leave":
		cmd := flag.NewFlagSet("family leave", flag.ExitOnError)
		familyID := cmd.String("family", "", "family id (required)")
		cmd.Parse(args[1:])
		user := a.requireUser()
		if err := a.family.LeaveFamily(*familyID, user.ID); err != nil {
			a.fail("could not leave family", err)
		}
		fmt.Println("Left family")

	case "remove":
		cmd := flag.NewFlagSet("family remove", flag.ExitOnError)
		familyID := cmd.String("family", "", "family id (required)")
		memberID := cmd.String("member", "", "member user id (required)")
		cmd.Parse(args[1:])
		user := a.requireUser()
		if err := a.family.RemoveMember(*familyID, *memberID, user.ID); err != nil {
			a.fail("could not remove member", err)
		}
		fmt.Println("Member removed")

	case "members":
		cmd := flag.NewFlagSet("family members", flag.ExitOnError)
		familyID := cmd.String("family", "", "family id (required)")
		cmd.Parse(args[1:])
		members, err := a.family.Members(*familyID)
		if err != nil {
			a.fail("could not list members", err)
		}
		family, err := a.family.Family(*familyID)
		if err != nil {
			a.fail("could not list members", err)
		}
		for _, m := range members {
			role := "member"
			if m.ID == family.OwnerID {
				role = "owner"
			}
			fmt.Printf("%-36s  %-8s  %s <%s>\n", m.ID, role, m.DisplayName, m.Email)
		}

	case "list":
		user := a.requireUser()
		for _, f := range a.family.Families(user.ID) {
			fmt.Printf("%-36s  %-10s  %s (%d members)\n", f.ID, f.InviteCode, f.Name, len(f.MemberIDs))
		}

	case "invite":
		cmd := flag.NewFlagSet("family invite", flag.ExitOnError)
		familyID := cmd.String("family", "", "family id (required)")
		to := cmd.String("email", "", "recipient email address (required)")
		cmd.Parse(args[1:])
		family, err := a.family.Family(*familyID)
		if err != nil {
			a.fail("could not send invite", err)
		}
		if !a.email.IsEnabled() {
			fmt.Printf("Email delivery is not configured; share this invite code with %s yourself:\n\n    %s\n", *to, family.InviteCode)
			return
		}
		if err := a.email.SendInviteCode(ctx, *to, family.Name, family.InviteCode); err != nil {
			a.fail("could not send invite", err)
		}
		fmt.Printf("Invite code for %q sent to %s\n", family.Name, *to)

	default:
		printUsage()
		os.Exit(1)
	}
}

func (a *app) runChild(args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "add":
		cmd := flag.NewFlagSet("child add", flag.ExitOnError)
		familyID := cmd.String("family", "", "family id (required)")
		name := cmd.String("name", "", "child name (required)")
		birthdate := cmd.String("birthdate", "", "birthdate (YYYY-MM-DD)")
		cmd.Parse(args[1:])
		a.requireUser()

		var born *time.Time
		if *birthdate != "" {
			t, err := time.Parse("2006-01-02", *birthdate)
			if err != nil {
				a.fail("invalid birthdate", err)
			}
			born = &t
		}
		child, err := a.family.CreateChild(*familyID, *name, born)
		if err != nil {
			a.fail("could not add child", err)
		}
		fmt.Printf("Added child %q (%s)\n", child.Name, child.ID)

	case "list":
		cmd := flag.NewFlagSet("child list", flag.ExitOnError)
		familyID := cmd.String("family", "", "family id (required)")
		cmd.Parse(args[1:])
		for _, c := range a.family.Children(*familyID) {
			born := ""
			if c.Birthdate != nil {
				born = c.Birthdate.Format("2006-01-02")
			}
			fmt.Printf("%-36s  %-12s  %s\n", c.ID, born, c.Name)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func (a *app) runEntry(ctx context.Context, args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "add":
		cmd := flag.NewFlagSet("entry add", flag.ExitOnError)
		familyID := cmd.String("family", "", "family id (required)")
		photoPaths := cmd.String("photos", "", "comma-separated image files (at least one required)")
		childIDs := cmd.String("children", "", "comma-separated child ids")
		description := cmd.String("description", "", "entry description")
		tags := cmd.String("tags", "", "comma-separated tags")
		suggestDesc := cmd.Bool("suggest", false, "suggest a description when none is given")
		cmd.Parse(args[1:])
		user := a.requireUser()

		paths := splitList(*photoPaths)
		if len(paths) == 0 {
			fmt.Println("Error: -photos requires at least one image file")
			os.Exit(1)
		}
		imageData := make([][]byte, 0, len(paths))
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				a.fail("could not read image", err)
			}
			imageData = append(imageData, data)
		}

		assets, err := a.journal.SavePhotos(ctx, imageData)
		if err != nil {
			a.fail("could not save photos", err)
		}
		photoIDs := make([]string, len(assets))
		for i, asset := range assets {
			photoIDs[i] = asset.ID
		}

		children := splitList(*childIDs)
		text := *description
		if text == "" && *suggestDesc {
			text = suggestDescription(a.family, *familyID, children, imageData)
		}

		entry, err := a.journal.CreateEntry(*familyID, children, photoIDs, text, splitList(*tags), user.ID)
		if err != nil {
			a.fail("could not create entry", err)
		}
		fmt.Printf("Created entry %s with %d photo(s)\n", entry.ID, len(entry.PhotoIDs))

	case "list":
		cmd := flag.NewFlagSet("entry list", flag.ExitOnError)
		familyID := cmd.String("family", "", "family id")
		childID := cmd.String("child", "", "child id")
		cmd.Parse(args[1:])

		var entries []models.JournalEntry
		switch {
		case *childID != "":
			entries = a.journal.EntriesForChild(*childID)
		case *familyID != "":
			entries = a.journal.EntriesForFamily(*familyID)
		default:
			fmt.Println("Error: one of -family or -child is required")
			os.Exit(1)
		}
		for _, e := range entries {
			fmt.Printf("%s  %-36s  %d photo(s)  %s\n",
				e.CreatedAt.Format(time.RFC3339), e.ID, len(e.PhotoIDs), e.DescriptionText)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func (a *app) runExport(st *store.Store, args []string) {
	cmd := flag.NewFlagSet("export", flag.ExitOnError)
	output := cmd.String("output", "", "output file path (default: heartloom_YYYYMMDD_HHMMSS.json)")
	cmd.Parse(args)

	path := *output
	if path == "" {
		path = fmt.Sprintf("heartloom_%s.json", time.Now().Format("20060102_150405"))
	}

	raw, err := json.MarshalIndent(st.Snapshot(), "", "  ")
	if err != nil {
		a.fail("export failed", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		a.fail("export failed", err)
	}
	fmt.Printf("Exported dataset to %s\n", path)
}

// suggestDescription resolves the selected children and asks the
// heuristic suggester for a description.
func suggestDescription(fam *service.FamilyService, familyID string, childIDs []string, imageData [][]byte) string {
	selected := make(map[string]bool, len(childIDs))
	for _, id := range childIDs {
		selected[id] = true
	}
	var children []models.ChildProfile
	for _, c := range fam.Children(familyID) {
		if selected[c.ID] {
			children = append(children, c)
		}
	}
	return suggest.Heuristic{}.Suggest(imageData, children)
}

func (a *app) requireUser() *models.UserAccount {
	user := a.auth.RestoreSession()
	if user == nil {
		fmt.Println("Not signed in; run `heartloom signin` first")
		os.Exit(1)
	}
	return user
}

func (a *app) fail(msg string, err error) {
	fmt.Printf("%s: %v\n", msg, err)
	a.logger.Error(msg, zap.Error(err))
	os.Exit(1)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
