package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/smartbrew/outreach/internal/campaign"
	"github.com/smartbrew/outreach/internal/config"
	"github.com/smartbrew/outreach/internal/extract"
	"github.com/smartbrew/outreach/internal/history"
	"github.com/smartbrew/outreach/internal/mailbox"
	"github.com/smartbrew/outreach/internal/message"
	"github.com/smartbrew/outreach/internal/roster"
	"github.com/smartbrew/outreach/internal/sender"
	"github.com/smartbrew/outreach/internal/spam"
	"github.com/smartbrew/outreach/internal/template"
	"github.com/smartbrew/outreach/internal/web"
)

var cfgFile string

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "outreach",
		Short: "Outreach - Email campaign automation and response tracking",
		Long: `Outreach automates bulk email campaigns and tracks their outcomes.

It sends templated emails to recipient lists, reconstructs conversation
threads from your mailbox over IMAP, and reports which recipients
responded, which didn't, and which addresses bounced.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.outreach/config.yaml)")

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(checkSpamCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(executivesCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long:  "Create a new configuration file with your account and delivery settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit()
		},
	}
}

func extractCmd() *cobra.Command {
	var (
		folder  string
		days    int
		before  string
		subject string
		out     string
		maxMsgs int
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract messages and response status from a folder",
		Long: `Fetch messages from your Sent folder or Inbox, reconstruct conversation
threads, and report each message's response status.

Sent-folder extraction produces one row per recipient; Inbox extraction
produces one row per message and recovers the original recipient of
delivery-failure notices.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(folder, days, before, subject, out, maxMsgs)
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "sent", "Folder to extract: sent or inbox")
	cmd.Flags().IntVar(&days, "days", 0, "Only include messages from the last N days")
	cmd.Flags().StringVar(&before, "before", "", "Only include messages before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&subject, "subject", "", "Only include messages whose subject contains this text")
	cmd.Flags().StringVar(&out, "out", "", "Write results to a CSV file")
	cmd.Flags().IntVar(&maxMsgs, "max", 0, "Maximum messages to process (default 3000)")

	return cmd
}

func matchCmd() *cobra.Command {
	var (
		executive string
		days      int
		subject   string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match sent campaign emails with inbox replies",
		Long: `Scan the Sent folder for campaign emails and check the Inbox for replies
to each one.

Use --executive to restrict matching to messages that cc'd a particular
executive's address.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(executive, days, subject, out)
		},
	}

	cmd.Flags().StringVar(&executive, "executive", "", "Only match messages cc'd to this address")
	cmd.Flags().IntVar(&days, "days", 30, "Only match messages from the last N days")
	cmd.Flags().StringVar(&subject, "subject", "", "Only match messages whose subject contains this text")
	cmd.Flags().StringVar(&out, "out", "", "Write results to a CSV file")

	return cmd
}

func sendCmd() *cobra.Command {
	var (
		recipientsFile string
		executive      string
		templateName   string
		dryRun         bool
		maxEmails      int
		resendAll      bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a templated campaign to a recipient list",
		Long: `Send templated outreach emails to every recipient in a CSV file.

The CSV must have Name and Email columns. Recipients that already
received a successful send are skipped unless --resend-all is given.
The chosen executive is cc'd on every message so replies can be
attributed later by 'outreach match'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(recipientsFile, executive, templateName, dryRun, maxEmails, resendAll)
		},
	}

	cmd.Flags().StringVar(&recipientsFile, "recipients", "", "Recipient CSV file (required)")
	cmd.Flags().StringVar(&executive, "executive", "", "Executive name or email from the roster to sign and cc")
	cmd.Flags().StringVar(&templateName, "template", "", "Template to use (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview emails without sending")
	cmd.Flags().IntVar(&maxEmails, "max", 0, "Maximum emails to send this run")
	cmd.Flags().BoolVar(&resendAll, "resend-all", false, "Include recipients that were already contacted")
	cmd.MarkFlagRequired("recipients")

	return cmd
}

func checkSpamCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "check-spam [text]",
		Short: "Score email text against common spam triggers",
		Long: `Check draft email content for words and phrases that commonly trip
spam filters, and report a 0-100 score.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			switch {
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				text = string(data)
			case len(args) > 0:
				text = strings.Join(args, " ")
			default:
				return fmt.Errorf("provide text as an argument or use --file")
			}
			return runCheckSpam(text)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Read email content from a file")

	return cmd
}

func statusCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show send history and statistics",
		Long:  "Display recent sends, recent runs, and overall statistics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent sends to show")

	return cmd
}

func executivesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executives",
		Short: "Manage the executive roster",
		Long:  "List, add, or remove the executives campaigns are signed by and cc'd to.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all executives in the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListExecutives()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add",
		Short: "Add an executive to the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddExecutive()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <email>",
		Short: "Remove an executive by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemoveExecutive(args[0])
		},
	})

	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local web interface",
		Long: `Start a local web server providing a browser-based interface for Outreach.

This opens a visual dashboard where you can:
- Set up your account and delivery settings
- Extract and download response reports
- Match campaigns against replies
- Send campaigns with visual progress

The server runs locally on your machine - no data is sent to external servers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")

	return cmd
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("📬 Outreach Configuration Setup")
	fmt.Println("================================")
	fmt.Println()

	cfg := &config.Config{}

	fmt.Println("📥 Mailbox Account (used for extraction and matching)")
	fmt.Println("  (See https://support.google.com/accounts/answer/185833 for app password setup)")
	fmt.Println()

	cfg.Account.Email = prompt(reader, "Email address: ")
	cfg.Account.AppPassword = prompt(reader, "App password (16-character code): ")
	cfg.Account.IMAPServer = "imap.gmail.com"
	cfg.Account.IMAPPort = 993

	fmt.Println()
	fmt.Println("📧 Delivery Settings")
	fmt.Println()

	provider := prompt(reader, "Provider (smtp/sendgrid/resend) [smtp]: ")
	if provider == "" {
		provider = "smtp"
	}
	cfg.Delivery.Provider = provider
	cfg.Delivery.From = cfg.Account.Email

	switch provider {
	case "smtp":
		cfg.Delivery.SMTP.Host = "smtp.gmail.com"
		cfg.Delivery.SMTP.Port = 465
		cfg.Delivery.SMTP.UseTLS = true
		cfg.Delivery.SMTP.Username = cfg.Account.Email
		cfg.Delivery.SMTP.Password = cfg.Account.AppPassword
	case "sendgrid", "resend":
		cfg.Delivery.APIKey = prompt(reader, "API key: ")
	}

	fmt.Println()
	fmt.Println("🏢 Organization (rendered into email footers)")
	fmt.Println()

	cfg.Organization.Name = prompt(reader, "Organization name (optional): ")
	cfg.Organization.Website = prompt(reader, "Website (optional): ")

	fmt.Println()
	fmt.Println("⚙️  Options")
	fmt.Println()

	templateChoice := prompt(reader, "Default template (intro/followup/followup2/pricing/generic) [generic]: ")
	if templateChoice == "" {
		templateChoice = "generic"
	}
	cfg.Options.Template = templateChoice

	configPath := resolveConfigPath()
	if err := config.Save(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Printf("✅ Configuration saved to: %s\n", configPath)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run 'outreach executives add' to register campaign executives")
	fmt.Println("  2. Run 'outreach send --recipients list.csv --dry-run' to preview")
	fmt.Println("  3. Run 'outreach extract' to see who responded")

	return nil
}

func connectMailbox(cfg *config.Config) (*mailbox.Client, error) {
	if err := cfg.ValidateAccount(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return mailbox.Connect(cfg.Account.IMAPServer, cfg.Account.IMAPPort, cfg.Account.Email, cfg.Account.AppPassword)
}

func parseDay(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
	}
	return t, nil
}

func runExtract(folder string, days int, before, subject, out string, maxMsgs int) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	origin := message.OriginSent
	switch strings.ToLower(folder) {
	case "sent":
	case "inbox":
		origin = message.OriginInbox
	default:
		return fmt.Errorf("unknown folder %q (sent or inbox)", folder)
	}

	beforeTime, err := parseDay(before)
	if err != nil {
		return err
	}
	var since time.Time
	if days > 0 {
		since = time.Now().AddDate(0, 0, -days)
	}

	mbox, err := connectMailbox(cfg)
	if err != nil {
		return err
	}
	defer mbox.Close()

	started := time.Now()
	fmt.Printf("📥 Extracting from %s...\n", folder)

	rows, err := extract.New(mbox).Run(extract.Options{
		Folder:      origin,
		Since:       since,
		Before:      beforeTime,
		Subject:     subject,
		MaxMessages: maxMsgs,
	})
	if err != nil {
		return err
	}

	fmt.Printf("📊 Extracted %d rows\n", len(rows))
	fmt.Println()

	responded, notResponded, failures := 0, 0, 0
	for _, r := range rows {
		switch r.Status {
		case "Responded":
			responded++
		case "Not Responded":
			notResponded++
		default:
			failures++
		}
	}
	fmt.Printf("  ✅ Responded:     %d\n", responded)
	fmt.Printf("  ⏳ Not responded: %d\n", notResponded)
	fmt.Printf("  💥 Failure/delay: %d\n", failures)

	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		if err := extract.WriteCSV(f, origin, rows); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
		fmt.Printf("\n💾 Results written to %s\n", out)
	}

	logRun(&history.Run{
		Type:       history.RunExtract,
		Folder:     folder,
		Rows:       len(rows),
		StartedAt:  started,
		FinishedAt: time.Now(),
	})

	return nil
}

func runMatch(executive string, days int, subject, out string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	mbox, err := connectMailbox(cfg)
	if err != nil {
		return err
	}
	defer mbox.Close()

	started := time.Now()
	fmt.Println("🔎 Matching campaign emails with replies...")

	var since time.Time
	if days > 0 {
		since = time.Now().AddDate(0, 0, -days)
	}

	rows, err := campaign.New(mbox).Match(campaign.Filters{
		Executive: executive,
		Since:     since,
		Subject:   subject,
	})
	if err != nil {
		return err
	}

	fmt.Printf("📊 Matched %d campaign emails\n", len(rows))
	fmt.Println()

	for _, r := range rows {
		status := "⏳"
		if r.Status == "Responded" {
			status = "✅"
		}
		fmt.Printf("%s %s <%s> - %s\n", status, r.Name, r.Email, r.Subject)
	}

	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		if err := campaign.WriteCSV(f, rows); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
		fmt.Printf("\n💾 Results written to %s\n", out)
	}

	logRun(&history.Run{
		Type:       history.RunMatch,
		Folder:     "sent",
		Rows:       len(rows),
		StartedAt:  started,
		FinishedAt: time.Now(),
	})

	return nil
}

func runSend(recipientsFile, executive, templateName string, dryRun bool, maxEmails int, resendAll bool) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateDelivery(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if dryRun {
		cfg.Options.DryRun = true
	}
	if templateName == "" {
		templateName = cfg.Options.Template
	}
	if maxEmails <= 0 {
		maxEmails = cfg.Options.MaxEmails
	}

	recipients, err := roster.LoadRecipients(recipientsFile)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		fmt.Println("No recipients to process.")
		return nil
	}

	var exec roster.Executive
	if executive != "" {
		r, err := roster.LoadFromFile(cfg.RosterPath)
		if err != nil {
			return err
		}
		found := r.FindByEmail(executive)
		if found == nil {
			found = r.FindByName(executive)
		}
		if found == nil {
			return fmt.Errorf("executive %q not found in roster (run 'outreach executives add')", executive)
		}
		exec = *found
	}

	engine, err := template.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize templates: %w", err)
	}

	store, err := history.NewStore(history.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}
	defer store.Close()

	contacted := map[string]bool{}
	if !resendAll {
		contacted, err = store.ContactedSet()
		if err != nil {
			return err
		}
	}

	// Assemble the batch up front so dry runs show exactly what a real
	// run would send.
	var msgs []sender.Message
	var names []string
	skipped := 0
	for _, rcpt := range recipients {
		if len(msgs) >= maxEmails {
			break
		}
		if contacted[strings.ToLower(rcpt.Email)] {
			skipped++
			continue
		}
		if err := sender.ValidateEmail(rcpt.Email); err != nil {
			fmt.Printf("  ⚠️  Skipping %s: %v\n", rcpt.Email, err)
			skipped++
			continue
		}

		rendered, err := engine.Render(templateName, rcpt, exec, cfg.Organization)
		if err != nil {
			return fmt.Errorf("failed to render template: %w", err)
		}

		msgs = append(msgs, sender.Message{
			To:       rcpt.Email,
			From:     cfg.Delivery.From,
			Cc:       exec.Email,
			Subject:  rendered.Subject,
			Body:     rendered.Body,
			HTMLBody: rendered.HTMLBody,
		})
		names = append(names, rcpt.Name)
	}

	if skipped > 0 {
		fmt.Printf("⏭️  Skipped %d recipients (already contacted or invalid)\n", skipped)
	}
	if len(msgs) == 0 {
		fmt.Println("No recipients left to send to.")
		return nil
	}

	if cfg.Options.DryRun {
		fmt.Println("🔍 DRY RUN MODE - No emails will be sent")
		fmt.Println()
		for i, msg := range msgs {
			fmt.Printf("[%d/%d] %s <%s>\n", i+1, len(msgs), names[i], msg.To)
			fmt.Printf("  📧 Would send: %s\n", msg.Subject)
			if msg.Cc != "" {
				fmt.Printf("  👤 Cc: %s\n", msg.Cc)
			}
		}
		fmt.Println()
		fmt.Printf("📊 Dry run complete: %d recipients would receive emails\n", len(msgs))
		return nil
	}

	snd, err := sender.NewSender(cfg.Delivery)
	if err != nil {
		return fmt.Errorf("failed to initialize sender: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping after current message...")
		cancel()
	}()

	started := time.Now()
	fmt.Printf("📤 Sending to %d recipients via %s...\n", len(msgs), snd.Name())
	fmt.Println()

	i := 0
	summary := sender.SendBatch(ctx, snd, msgs, func(msg sender.Message, res sender.Result) {
		record := &history.Record{
			RecipientName: names[i],
			Email:         msg.To,
			Executive:     exec.Name,
			Template:      templateName,
			SentAt:        time.Now(),
		}
		if res.Success {
			record.Status = history.StatusSent
			record.MessageID = res.MessageID
			fmt.Printf("[%d/%d] ✅ %s\n", i+1, len(msgs), msg.To)
		} else {
			record.Status = history.StatusFailed
			record.Error = res.Error.Error()
			fmt.Printf("[%d/%d] ❌ %s: %v\n", i+1, len(msgs), msg.To, res.Error)
		}
		if err := store.Add(record); err != nil {
			fmt.Printf("  ⚠️  Failed to record history: %v\n", err)
		}
		i++
	})

	store.AddRun(&history.Run{
		Type:       history.RunSend,
		Rows:       len(msgs),
		Sent:       summary.Sent,
		Failed:     summary.Failed,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})

	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📊 Complete: %d sent, %d failed\n", summary.Sent, summary.Failed)

	return nil
}

func runCheckSpam(text string) error {
	result := spam.Score(text)

	fmt.Println("📊 Spam Score Check")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	switch result.Level() {
	case spam.LevelLow:
		fmt.Printf("✅ Low spam score: %d%%. Your email looks good!\n", result.Score)
	case spam.LevelMedium:
		fmt.Printf("⚠️  Medium spam score: %d%%. Consider revising some phrases.\n", result.Score)
	default:
		fmt.Printf("❌ High spam score: %d%%. Your email is likely to trigger spam filters!\n", result.Score)
	}

	if len(result.Found) > 0 {
		fmt.Println()
		fmt.Println("Spam triggers found:")
		fmt.Printf("  %s\n", strings.Join(result.Found, ", "))
	}

	return nil
}

func runStatus(limit int) error {
	store, err := history.NewStore(history.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	total, sent, failed, err := store.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	monthlySent, monthlyFailed, err := store.GetMonthlyStats()
	if err != nil {
		return fmt.Errorf("failed to get monthly stats: %w", err)
	}

	fmt.Println("📊 Outreach Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Println("All Time:")
	fmt.Printf("  Total sends: %d\n", total)
	fmt.Printf("  Sent: %d\n", sent)
	fmt.Printf("  Failed: %d\n", failed)
	fmt.Println()
	fmt.Println("This Month:")
	fmt.Printf("  Sent: %d\n", monthlySent)
	fmt.Printf("  Failed: %d\n", monthlyFailed)

	records, err := store.GetRecentSends(limit)
	if err != nil {
		return fmt.Errorf("failed to get recent sends: %w", err)
	}

	if len(records) > 0 {
		fmt.Println()
		fmt.Printf("📜 Recent Sends (last %d)\n", limit)
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		for _, r := range records {
			status := "✅"
			if r.Status == history.StatusFailed {
				status = "❌"
			}
			fmt.Printf("%s %s - %s (%s)\n",
				status,
				r.SentAt.Format("2006-01-02 15:04"),
				r.Email,
				r.Template,
			)
			if r.Error != "" {
				fmt.Printf("   Error: %s\n", r.Error)
			}
		}
	}

	runs, err := store.GetRecentRuns(5)
	if err == nil && len(runs) > 0 {
		fmt.Println()
		fmt.Println("🕒 Recent Runs")
		fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		for _, run := range runs {
			fmt.Printf("%s %s - %d rows", run.StartedAt.Format("2006-01-02 15:04"), run.Type, run.Rows)
			if run.Type == history.RunSend {
				fmt.Printf(" (%d sent, %d failed)", run.Sent, run.Failed)
			}
			fmt.Println()
		}
	}

	return nil
}

func runListExecutives() error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	r, err := roster.LoadFromFile(cfg.RosterPath)
	if err != nil {
		return err
	}

	fmt.Printf("👥 Executives (%d total)\n", len(r.Executives))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	for _, e := range r.Executives {
		fmt.Printf("\n%s\n", e.Name)
		fmt.Printf("  📧 %s\n", e.Email)
		if e.Phone != "" {
			fmt.Printf("  📱 %s\n", e.Phone)
		}
	}

	return nil
}

func runAddExecutive() error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("➕ Add Executive")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	e := roster.Executive{}
	e.Name = prompt(reader, "Name: ")
	e.Email = prompt(reader, "Email: ")
	e.Phone = prompt(reader, "Phone (optional): ")

	var r *roster.Roster
	if _, err := os.Stat(cfg.RosterPath); os.IsNotExist(err) {
		r = &roster.Roster{}
	} else {
		r, err = roster.LoadFromFile(cfg.RosterPath)
		if err != nil {
			return err
		}
	}

	if err := r.Add(e); err != nil {
		return err
	}
	if err := r.Save(cfg.RosterPath); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("✅ Added %s to the roster\n", e.Name)

	return nil
}

func runRemoveExecutive(email string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	r, err := roster.LoadFromFile(cfg.RosterPath)
	if err != nil {
		return err
	}

	removed := r.RemoveByEmail(email)
	if removed == nil {
		return fmt.Errorf("no executive with email %q", email)
	}

	if err := r.SaveWithBackup(cfg.RosterPath); err != nil {
		return err
	}

	fmt.Printf("✓ Removed %s (%s)\n", removed.Name, removed.Email)
	fmt.Printf("  Backup saved to: %s.bak\n", cfg.RosterPath)

	return nil
}

func runServe(port int) error {
	configPath := resolveConfigPath()
	var cfg *config.Config
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			fmt.Printf("⚠️  Config exists but failed to load: %v\n", err)
			fmt.Println("The setup wizard will help you reconfigure.")
			cfg = nil
		}
	}

	store, err := history.NewStore(history.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}
	defer store.Close()

	engine, err := template.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to initialize templates: %w", err)
	}

	server, err := web.NewServer(port, cfg, configPath, store, engine)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	return server.Start()
}

// logRun records a run in history, best effort: a reporting failure
// should never fail the command that just succeeded.
func logRun(run *history.Run) {
	store, err := history.NewStore(history.DefaultDBPath())
	if err != nil {
		return
	}
	defer store.Close()
	store.AddRun(run)
}

func prompt(reader *bufio.Reader, message string) string {
	fmt.Print(message)
	input, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(input)
}
