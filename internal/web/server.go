package web

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/smartbrew/outreach/internal/campaign"
	"github.com/smartbrew/outreach/internal/config"
	"github.com/smartbrew/outreach/internal/extract"
	"github.com/smartbrew/outreach/internal/history"
	"github.com/smartbrew/outreach/internal/mailbox"
	"github.com/smartbrew/outreach/internal/message"
	"github.com/smartbrew/outreach/internal/roster"
	"github.com/smartbrew/outreach/internal/sender"
	"github.com/smartbrew/outreach/internal/spam"
	mailTemplate "github.com/smartbrew/outreach/internal/template"
	"github.com/smartbrew/outreach/internal/thread"
)

//go:embed static/*
var staticFS embed.FS

//go:embed templates/*
var templatesFS embed.FS

const (
	defaultRateLimit  = 30
	defaultRateWindow = time.Minute
	defaultSessionTTL = 30 * time.Minute
)

type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) filterRecent(times []time.Time, windowStart time.Time) []time.Time {
	n := 0
	for _, t := range times {
		if t.After(windowStart) {
			times[n] = t
			n++
		}
	}
	return times[:n]
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := rl.filterRecent(rl.requests[key], now.Add(-rl.window))

	if len(recent) >= rl.limit {
		rl.requests[key] = recent
		return false
	}
	rl.requests[key] = append(recent, now)
	return true
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		windowStart := time.Now().Add(-rl.window)
		for key, times := range rl.requests {
			recent := rl.filterRecent(times, windowStart)
			if len(recent) == 0 {
				delete(rl.requests, key)
			} else {
				rl.requests[key] = recent
			}
		}
		rl.mu.Unlock()
	}
}

type Server struct {
	config       *config.Config
	configPath   string
	historyStore *history.Store
	tmplEngine   *mailTemplate.Engine
	templates    map[string]*template.Template
	httpServer   *http.Server
	port         int
	csrfKey      []byte
	sessions     *SessionStore
	rateLimiter  *RateLimiter
	jobManager   *JobManager
}

func NewServer(port int, cfg *config.Config, configPath string, historyStore *history.Store, tmplEngine *mailTemplate.Engine) (*Server, error) {
	csrfKey := make([]byte, 32)
	if _, err := rand.Read(csrfKey); err != nil {
		return nil, fmt.Errorf("failed to generate CSRF key: %w", err)
	}

	s := &Server{
		config:       cfg,
		configPath:   configPath,
		historyStore: historyStore,
		tmplEngine:   tmplEngine,
		port:         port,
		csrfKey:      csrfKey,
		sessions:     NewSessionStore(defaultSessionTTL),
		rateLimiter:  NewRateLimiter(defaultRateLimit, defaultRateWindow),
		jobManager:   NewJobManager(),
	}

	tmpl, err := s.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.templates = tmpl
	return s, nil
}

// parseTemplates loads and parses all HTML templates
// Each page gets its own template set to avoid "content" block conflicts
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 3:04 PM")
		},
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"add": func(a, b int) int {
			return a + b
		},
	}

	// Read layout template
	layoutContent, err := templatesFS.ReadFile("templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read layout template: %w", err)
	}

	// Read all partial templates
	var partials []string
	partialTemplates := make(map[string]string)
	err = fs.WalkDir(templatesFS, "templates/partials", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".html") {
			return err
		}
		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return err
		}
		partials = append(partials, string(content))
		// Also save for standalone partial templates
		name := path[len("templates/"):]
		partialTemplates[name] = string(content)
		return nil
	})
	if err != nil && !strings.Contains(err.Error(), "file does not exist") {
		return nil, fmt.Errorf("failed to read partials: %w", err)
	}

	// Map to hold all page templates
	templates := make(map[string]*template.Template)

	// Walk through all page templates and create separate template sets
	err = fs.WalkDir(templatesFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		// Skip directories, partials, and layout
		if d.IsDir() || strings.Contains(path, "/partials/") || path == "templates/layout.html" {
			return nil
		}
		if !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}

		// Create a new template for this page
		name := path[len("templates/"):]
		pageTmpl := template.New(name).Funcs(funcs)

		// Parse layout first
		_, err = pageTmpl.Parse(string(layoutContent))
		if err != nil {
			return fmt.Errorf("failed to parse layout for %s: %w", name, err)
		}

		// Parse partials
		for _, partial := range partials {
			_, err = pageTmpl.Parse(partial)
			if err != nil {
				return fmt.Errorf("failed to parse partial for %s: %w", name, err)
			}
		}

		// Parse the page content (this defines "content" block for this specific page)
		_, err = pageTmpl.Parse(string(content))
		if err != nil {
			return fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		// Store in map
		templates[name] = pageTmpl

		return nil
	})

	if err != nil {
		return nil, err
	}

	// Add partial templates as standalone templates (for HTMX responses)
	for name, content := range partialTemplates {
		partialTmpl := template.New(name).Funcs(funcs)
		_, err = partialTmpl.Parse(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse partial %s: %w", name, err)
		}
		templates[name] = partialTmpl
	}

	return templates, nil
}

// Start starts the web server and opens the browser
func (s *Server) Start() error {
	router := s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Open browser after a short delay
	go func() {
		time.Sleep(500 * time.Millisecond)
		url := fmt.Sprintf("http://localhost:%d", s.port)
		openBrowser(url)
	}()

	fmt.Printf("Starting Outreach web UI at http://localhost:%d\n", s.port)
	fmt.Println("Press Ctrl+C to stop")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// setupRouter configures all routes
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders)

	// CSRF protection - secure for localhost only
	csrfMiddleware := csrf.Protect(
		s.csrfKey,
		csrf.Secure(false), // Allow HTTP for localhost
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode), // Lax mode for form submissions
		csrf.RequestHeader("X-CSRF-Token"),  // For HTMX AJAX requests
		csrf.TrustedOrigins([]string{"localhost", "127.0.0.1", fmt.Sprintf("localhost:%d", s.port), fmt.Sprintf("127.0.0.1:%d", s.port)}),
	)
	r.Use(csrfMiddleware)

	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Routes
	r.Get("/", s.handleDashboard)
	r.Get("/extract", s.handleExtract)
	r.Post("/extract", s.handleExtractRun)
	r.Get("/extract/download", s.handleExtractDownload)
	r.Get("/match", s.handleMatch)
	r.Post("/match", s.handleMatchRun)
	r.Get("/match/download", s.handleMatchDownload)
	r.Get("/send", s.handleSend)
	r.Get("/spam", s.handleSpam)
	r.Get("/history", s.handleHistory)
	r.Get("/settings", s.handleSettings)
	r.Post("/settings/account", s.handleSettingsAccount)
	r.Post("/settings/delivery", s.handleSettingsDelivery)
	r.Post("/settings/organization", s.handleSettingsOrganization)

	// Setup wizard routes
	r.Route("/setup", func(r chi.Router) {
		r.Get("/", s.handleSetupWelcome)
		r.Get("/account", s.handleSetupAccount)
		r.Post("/account", s.handleSetupAccount)
		r.Get("/delivery", s.handleSetupDelivery)
		r.Post("/delivery", s.handleSetupDelivery)
		r.Get("/test", s.handleSetupTest)
		r.Post("/test/send", s.handleSetupTestSend)
		r.Get("/complete", s.handleSetupComplete)
	})

	// API routes (for HTMX)
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleAPIStats)
		r.Post("/send", s.handleAPISend)
		r.Get("/job/active", s.handleAPIJobActive)
		r.Get("/job/{jobID}/status", s.handleAPIJobStatus)
		r.Post("/job/{jobID}/cancel", s.handleAPIJobCancel)
		r.Post("/spam", s.handleAPISpam)
		r.Delete("/history/failed", s.handleAPIDeleteFailed)
	})

	return r
}

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Content Security Policy - restrict resource loading
		// 'unsafe-inline' needed for Tailwind CSS and inline scripts (HTMX attributes)
		// CDN domains allowed for Tailwind, HTMX, and Google Fonts
		csp := "default-src 'self'; " +
			"script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.tailwindcss.com https://unpkg.com; " +
			"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; " +
			"img-src 'self' data:; " +
			"font-src 'self' https://fonts.gstatic.com; " +
			"connect-src 'self'; " +
			"frame-ancestors 'none'; " +
			"form-action 'self'; " +
			"base-uri 'self'"
		w.Header().Set("Content-Security-Policy", csp)

		// Prevent caching of sensitive pages - credentials should never be cached
		// Static files are excluded from this via separate cache headers
		if !strings.HasPrefix(r.URL.Path, "/static/") {
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
		}

		// Disable unnecessary browser features
		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

		next.ServeHTTP(w, r)
	})
}

// openBrowser opens the default browser to the specified URL
func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		return
	}

	exec.Command(cmd, args...).Start()
}

// Handler implementations

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// Check if config exists, redirect to setup if not
	if s.config == nil || s.config.Account.Email == "" {
		http.Redirect(w, r, "/setup", http.StatusFound)
		return
	}

	data := map[string]interface{}{
		"Title":       "Dashboard",
		"Account":     s.config.Account,
		"Stats":       s.getStats(),
		"RecentSends": s.getRecentHistory(10),
		"RecentRuns":  s.getRecentRuns(5),
	}

	s.renderWithCSRF(w, r, "dashboard.html", data)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":  "Extract Responses",
		"Folder": "sent",
		"Days":   30,
	}
	s.renderWithCSRF(w, r, "extract.html", data)
}

func (s *Server) handleExtractRun(w http.ResponseWriter, r *http.Request) {
	if !s.rateLimiter.Allow("extract") {
		s.renderExtractError(w, r, "Rate limit exceeded. Please wait a moment before running another extraction.")
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderExtractError(w, r, "Failed to parse form")
		return
	}

	origin := message.OriginSent
	if r.FormValue("folder") == "inbox" {
		origin = message.OriginInbox
	}
	days, _ := strconv.Atoi(r.FormValue("days"))
	subject := strings.TrimSpace(r.FormValue("subject"))

	opts := extract.Options{
		Folder:  origin,
		Subject: subject,
	}
	if days > 0 {
		opts.Since = time.Now().AddDate(0, 0, -days)
	}

	started := time.Now()
	mbox, err := s.connectMailbox()
	if err != nil {
		s.renderExtractError(w, r, "Mailbox connection failed: "+err.Error())
		return
	}
	defer mbox.Close()

	rows, err := extract.New(mbox).Run(opts)
	if err != nil {
		s.renderExtractError(w, r, "Extraction failed: "+err.Error())
		return
	}

	// Cache results in the session so the download link serves these rows
	if session := s.getOrCreateSession(w, r); session != nil {
		s.updateSession(r, func(sess *Session) {
			sess.ExtractRows = rows
			sess.ExtractOrigin = origin
		})
	}

	s.logRun(&history.Run{
		Type:       history.RunExtract,
		Folder:     string(origin),
		Rows:       len(rows),
		StartedAt:  started,
		FinishedAt: time.Now(),
	})

	responded, notResponded, failures := countStatuses(rows)

	data := map[string]interface{}{
		"Title":        "Extract Responses",
		"Folder":       string(origin),
		"Days":         days,
		"Subject":      subject,
		"Rows":         rows,
		"Responded":    responded,
		"NotResponded": notResponded,
		"Failures":     failures,
		"HasResults":   true,
	}
	s.renderWithCSRF(w, r, "extract.html", data)
}

func (s *Server) renderExtractError(w http.ResponseWriter, r *http.Request, msg string) {
	data := map[string]interface{}{
		"Title":  "Extract Responses",
		"Folder": "sent",
		"Days":   30,
		"Error":  msg,
	}
	s.renderWithCSRF(w, r, "extract.html", data)
}

func (s *Server) handleExtractDownload(w http.ResponseWriter, r *http.Request) {
	session := s.getSession(r)
	if session == nil || len(session.ExtractRows) == 0 {
		http.Redirect(w, r, "/extract", http.StatusFound)
		return
	}

	filename := fmt.Sprintf("responses_%s.csv", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := extract.WriteCSV(w, session.ExtractOrigin, session.ExtractRows); err != nil {
		log.Printf("Warning: CSV export failed: %v", err)
	}
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title":      "Match Campaigns",
		"Days":       30,
		"Executives": s.loadExecutives(),
	}
	s.renderWithCSRF(w, r, "match.html", data)
}

func (s *Server) handleMatchRun(w http.ResponseWriter, r *http.Request) {
	if !s.rateLimiter.Allow("match") {
		s.renderMatchError(w, r, "Rate limit exceeded. Please wait a moment before running another match.")
		return
	}

	if err := r.ParseForm(); err != nil {
		s.renderMatchError(w, r, "Failed to parse form")
		return
	}

	executive := strings.TrimSpace(r.FormValue("executive"))
	days, _ := strconv.Atoi(r.FormValue("days"))
	subject := strings.TrimSpace(r.FormValue("subject"))

	filters := campaign.Filters{
		Executive: executive,
		Subject:   subject,
	}
	if days > 0 {
		filters.Since = time.Now().AddDate(0, 0, -days)
	}

	started := time.Now()
	mbox, err := s.connectMailbox()
	if err != nil {
		s.renderMatchError(w, r, "Mailbox connection failed: "+err.Error())
		return
	}
	defer mbox.Close()

	rows, err := campaign.New(mbox).Match(filters)
	if err != nil {
		s.renderMatchError(w, r, "Match failed: "+err.Error())
		return
	}

	if session := s.getOrCreateSession(w, r); session != nil {
		s.updateSession(r, func(sess *Session) {
			sess.MatchRows = rows
		})
	}

	s.logRun(&history.Run{
		Type:       history.RunMatch,
		Rows:       len(rows),
		StartedAt:  started,
		FinishedAt: time.Now(),
	})

	replied := 0
	for _, row := range rows {
		if row.Status == thread.StatusResponded {
			replied++
		}
	}

	data := map[string]interface{}{
		"Title":      "Match Campaigns",
		"Days":       days,
		"Subject":    subject,
		"Executive":  executive,
		"Executives": s.loadExecutives(),
		"Rows":       rows,
		"Replied":    replied,
		"Awaiting":   len(rows) - replied,
		"HasResults": true,
	}
	s.renderWithCSRF(w, r, "match.html", data)
}

func (s *Server) renderMatchError(w http.ResponseWriter, r *http.Request, msg string) {
	data := map[string]interface{}{
		"Title":      "Match Campaigns",
		"Days":       30,
		"Executives": s.loadExecutives(),
		"Error":      msg,
	}
	s.renderWithCSRF(w, r, "match.html", data)
}

func (s *Server) handleMatchDownload(w http.ResponseWriter, r *http.Request) {
	session := s.getSession(r)
	if session == nil || len(session.MatchRows) == 0 {
		http.Redirect(w, r, "/match", http.StatusFound)
		return
	}

	filename := fmt.Sprintf("campaigns_%s.csv", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := campaign.WriteCSV(w, session.MatchRows); err != nil {
		log.Printf("Warning: CSV export failed: %v", err)
	}
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if s.config == nil {
		http.Redirect(w, r, "/setup", http.StatusFound)
		return
	}

	tmplName := s.config.Options.Template
	if tmplName == "" {
		tmplName = "generic"
	}

	data := map[string]interface{}{
		"Title":      "Send Campaign",
		"Executives": s.loadExecutives(),
		"Templates":  s.tmplEngine.AvailableTemplates(),
		"Template":   tmplName,
		"Stats":      s.getStats(),
	}
	s.renderWithCSRF(w, r, "send.html", data)
}

func (s *Server) handleSpam(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title": "Spam Check",
	}
	s.renderWithCSRF(w, r, "spam.html", data)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	allHistory := s.getRecentHistory(1000)

	// Filter by status if specified
	var filteredHistory []history.Record
	if statusFilter == "sent" || statusFilter == "failed" || statusFilter == "skipped" {
		for _, h := range allHistory {
			if string(h.Status) == statusFilter {
				filteredHistory = append(filteredHistory, h)
			}
		}
	} else {
		filteredHistory = allHistory
	}

	data := map[string]interface{}{
		"Title":        "History",
		"History":      filteredHistory,
		"StatusFilter": statusFilter,
	}
	s.renderWithCSRF(w, r, "history.html", data)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	cfg := s.config
	if cfg == nil {
		cfg = &config.Config{}
	}
	data := map[string]interface{}{
		"Title":  "Settings",
		"Config": cfg,
	}
	s.renderWithCSRF(w, r, "settings.html", data)
}

func (s *Server) handleSettingsAccount(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderSettingsWithMessage(w, r, "Failed to parse form", false)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := strings.TrimSpace(r.FormValue("app_password"))
	server := strings.TrimSpace(r.FormValue("imap_server"))
	port, _ := strconv.Atoi(r.FormValue("imap_port"))

	if email == "" || password == "" {
		s.renderSettingsWithMessage(w, r, "Email and app password are required", false)
		return
	}
	if server == "" {
		server = "imap.gmail.com"
	}
	if port == 0 {
		port = 993
	}

	if s.config == nil {
		s.config = &config.Config{}
	}
	s.config.Account = config.Account{
		Email:       email,
		AppPassword: password,
		IMAPServer:  server,
		IMAPPort:    port,
	}

	if err := config.Save(s.configPath, s.config); err != nil {
		s.renderSettingsWithMessage(w, r, "Failed to save configuration: "+err.Error(), false)
		return
	}

	s.renderSettingsWithMessage(w, r, "Account settings saved!", true)
}

func (s *Server) handleSettingsDelivery(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderSettingsWithMessage(w, r, "Failed to parse form", false)
		return
	}

	if s.config == nil {
		s.config = &config.Config{}
	}
	delivery, errMsg := parseDeliveryForm(r, s.config.Account.Email)
	if errMsg != "" {
		s.renderSettingsWithMessage(w, r, errMsg, false)
		return
	}

	s.config.Delivery = delivery
	if err := s.config.ValidateDelivery(); err != nil {
		s.renderSettingsWithMessage(w, r, "Invalid delivery settings: "+err.Error(), false)
		return
	}

	if err := config.Save(s.configPath, s.config); err != nil {
		s.renderSettingsWithMessage(w, r, "Failed to save configuration: "+err.Error(), false)
		return
	}

	s.renderSettingsWithMessage(w, r, "Delivery settings saved!", true)
}

func (s *Server) handleSettingsOrganization(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderSettingsWithMessage(w, r, "Failed to parse form", false)
		return
	}

	if s.config == nil {
		s.config = &config.Config{}
	}
	s.config.Organization = config.Organization{
		Name:         strings.TrimSpace(r.FormValue("org_name")),
		About:        strings.TrimSpace(r.FormValue("org_about")),
		Website:      strings.TrimSpace(r.FormValue("org_website")),
		Registration: strings.TrimSpace(r.FormValue("org_registration")),
	}

	if err := config.Save(s.configPath, s.config); err != nil {
		s.renderSettingsWithMessage(w, r, "Failed to save configuration: "+err.Error(), false)
		return
	}

	s.renderSettingsWithMessage(w, r, "Organization details saved!", true)
}

// parseDeliveryForm reads the shared delivery fields used by both the
// settings page and the setup wizard.
func parseDeliveryForm(r *http.Request, accountEmail string) (config.Delivery, string) {
	delivery := config.Delivery{
		Provider: strings.TrimSpace(r.FormValue("provider")),
		From:     strings.TrimSpace(r.FormValue("from")),
		APIKey:   strings.TrimSpace(r.FormValue("api_key")),
	}
	if delivery.From == "" {
		delivery.From = accountEmail
	}

	switch delivery.Provider {
	case "smtp", "":
		delivery.Provider = "smtp"
		delivery.SMTP.Host = strings.TrimSpace(r.FormValue("smtp_host"))
		fmt.Sscanf(r.FormValue("smtp_port"), "%d", &delivery.SMTP.Port)
		delivery.SMTP.Username = strings.TrimSpace(r.FormValue("smtp_username"))
		delivery.SMTP.Password = strings.TrimSpace(r.FormValue("smtp_password"))
		delivery.SMTP.UseTLS = r.FormValue("smtp_tls") == "on"

		if delivery.SMTP.Host == "" {
			return delivery, "SMTP host is required"
		}
		if delivery.SMTP.Port == 0 {
			return delivery, "SMTP port is required"
		}
		if !delivery.SMTP.UseTLS && delivery.SMTP.Username != "" {
			return delivery, "TLS is required when using SMTP authentication"
		}
	case "sendgrid", "resend":
		if delivery.APIKey == "" {
			return delivery, "API key is required for " + delivery.Provider
		}
	default:
		return delivery, "Unknown provider: " + delivery.Provider
	}

	return delivery, ""
}

func (s *Server) renderSettingsWithMessage(w http.ResponseWriter, r *http.Request, message string, success bool) {
	cfg := s.config
	if cfg == nil {
		cfg = &config.Config{}
	}
	data := map[string]interface{}{
		"Title":   "Settings",
		"Config":  cfg,
		"Message": message,
		"Success": success,
	}
	s.renderWithCSRF(w, r, "settings.html", data)
}

// API handlers

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stats := s.getStats()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"sent":%d,"failed":%d,"monthly_sent":%d,"monthly_failed":%d}`,
		stats.Sent, stats.Failed, stats.MonthlySent, stats.MonthlyFailed)
}

func (s *Server) handleAPIDeleteFailed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.historyStore == nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "Database not available"})
		return
	}

	deleted, err := s.historyStore.DeleteByStatus(history.StatusFailed)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"deleted": deleted,
		"message": fmt.Sprintf("Deleted %d failed records", deleted),
	})
}

func (s *Server) handleAPISpam(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Failed to parse form"})
		return
	}

	text := r.FormValue("text")
	if strings.TrimSpace(text) == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "No text provided"})
		return
	}

	result := spam.Score(text)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"score":    result.Score,
		"level":    result.Level(),
		"triggers": result.Found,
		"words":    result.Words,
	})
}

func (s *Server) handleAPISend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Rate limiting - prevent abuse of bulk email sending
	if !s.rateLimiter.Allow("send") {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "Rate limit exceeded. Please wait before sending another batch."})
		return
	}

	// Check if a job is already running
	if activeJob := s.jobManager.GetActive(); activeJob != nil {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  "A send job is already in progress",
			"job_id": activeJob.ID,
		})
		return
	}

	if s.config == nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Not configured. Complete setup first."})
		return
	}
	if err := s.config.ValidateDelivery(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Delivery not configured: " + err.Error()})
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Failed to parse upload"})
		return
	}

	file, _, err := r.FormFile("recipients")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Recipients CSV file is required"})
		return
	}
	defer file.Close()

	recipients, err := roster.ReadRecipients(file)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	execEmail := strings.TrimSpace(r.FormValue("executive"))
	if execEmail == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "An executive must be selected"})
		return
	}
	execs := s.loadRoster()
	signer := execs.FindByEmail(execEmail)
	if signer == nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Executive not found in roster: " + execEmail})
		return
	}

	tmplName := strings.TrimSpace(r.FormValue("template"))
	if tmplName == "" {
		tmplName = s.config.Options.Template
	}
	if tmplName == "" {
		tmplName = "generic"
	}

	// Skip recipients already contacted unless a full resend was requested
	resendAll := r.FormValue("resend_all") == "on" || r.FormValue("resend_all") == "true"
	skipped := 0
	if !resendAll && s.historyStore != nil {
		contacted, err := s.historyStore.ContactedSet()
		if err == nil {
			var fresh []roster.Recipient
			for _, rec := range recipients {
				if contacted[strings.ToLower(rec.Email)] {
					skipped++
					continue
				}
				fresh = append(fresh, rec)
			}
			recipients = fresh
		}
	}

	maxEmails := s.config.Options.MaxEmails
	if maxEmails > 0 && len(recipients) > maxEmails {
		recipients = recipients[:maxEmails]
	}

	if len(recipients) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "No recipients left to contact. Everyone in the file has already been emailed."})
		return
	}

	dryRun := r.FormValue("dry_run") == "on" || r.FormValue("dry_run") == "true"
	if dryRun {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"dry_run": true,
			"total":   len(recipients),
			"skipped": skipped,
		})
		return
	}

	// Create the sender up front so a bad config fails the request, not the job
	snd, err := sender.NewSender(s.config.Delivery)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	job := s.jobManager.Create(len(recipients))

	// Start background goroutine to process emails
	go s.processSendJob(job, recipients, *signer, tmplName, snd)

	// Return job ID immediately
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id":  job.ID,
		"total":   len(recipients),
		"skipped": skipped,
	})
}

// processSendJob runs in a background goroutine to send emails
func (s *Server) processSendJob(job *Job, recipients []roster.Recipient, signer roster.Executive, tmplName string, snd sender.Sender) {
	sent := 0
	failed := 0

	for _, rec := range recipients {
		// Check if job was cancelled
		if job.IsCancelled() {
			break
		}

		job.Update(sent, failed, rec.Email)

		record := &history.Record{
			RecipientName: rec.Name,
			Email:         rec.Email,
			Executive:     signer.Email,
			Template:      tmplName,
			SentAt:        time.Now(),
		}

		if err := sender.ValidateEmail(rec.Email); err != nil {
			failed++
			record.Status = history.StatusFailed
			record.Error = err.Error()
			s.addRecord(record)
			job.Update(sent, failed, rec.Email)
			continue
		}

		rendered, err := s.tmplEngine.Render(tmplName, rec, signer, s.config.Organization)
		if err != nil {
			failed++
			record.Status = history.StatusFailed
			record.Error = err.Error()
			s.addRecord(record)
			job.Update(sent, failed, rec.Email)
			continue
		}

		msg := sender.Message{
			To:       rec.Email,
			From:     s.config.Delivery.From,
			Cc:       signer.Email,
			Subject:  rendered.Subject,
			Body:     rendered.Body,
			HTMLBody: rendered.HTMLBody,
		}

		// Use job's context with timeout for cancellation support
		ctx, cancel := context.WithTimeout(job.Context(), 30*time.Second)
		result := snd.Send(ctx, msg)
		cancel()

		if result.Success {
			record.Status = history.StatusSent
			record.MessageID = result.MessageID
			sent++
			job.ResetAuthFailures() // Reset on success
		} else {
			record.Status = history.StatusFailed
			errMsg := ""
			if result.Error != nil {
				errMsg = result.Error.Error()
				record.Error = errMsg
			}
			failed++

			// Check for auth failures and stop if too many consecutive
			if strings.Contains(strings.ToLower(errMsg), "auth") {
				if job.RecordAuthFailure() {
					s.addRecord(record)
					job.Update(sent, failed, rec.Email)
					job.StopWithError("auth", "Stopped due to repeated authentication failures. Your email provider may have rate-limited or blocked your account. Please check your delivery settings and try again later.")
					log.Printf("Job stopped: repeated auth failures after %d sent, %d failed", sent, failed)
					s.logSendRun(job, sent, failed, len(recipients))
					return
				}
			}
		}

		s.addRecord(record)
		job.Update(sent, failed, rec.Email)
	}

	job.Complete()
	s.logSendRun(job, sent, failed, len(recipients))
}

func (s *Server) addRecord(record *history.Record) {
	if s.historyStore == nil {
		return
	}
	if err := s.historyStore.Add(record); err != nil {
		log.Printf("Warning: failed to record send history: %v", err)
	}
}

func (s *Server) logSendRun(job *Job, sent, failed, total int) {
	s.logRun(&history.Run{
		Type:       history.RunSend,
		Rows:       total,
		Sent:       sent,
		Failed:     failed,
		StartedAt:  job.StartedAt,
		FinishedAt: time.Now(),
	})
}

// logRun records a run in history, best effort
func (s *Server) logRun(run *history.Run) {
	if s.historyStore == nil {
		return
	}
	if err := s.historyStore.AddRun(run); err != nil {
		log.Printf("Warning: failed to record run: %v", err)
	}
}

func (s *Server) handleAPIJobActive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	job := s.jobManager.GetActive()
	if job == nil {
		json.NewEncoder(w).Encode(map[string]interface{}{"active": false})
		return
	}

	data := job.ToJSON()
	data["active"] = true
	json.NewEncoder(w).Encode(data)
}

func (s *Server) handleAPIJobStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	jobID := chi.URLParam(r, "jobID")
	job := s.jobManager.Get(jobID)
	if job == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Job not found"})
		return
	}

	json.NewEncoder(w).Encode(job.ToJSON())
}

func (s *Server) handleAPIJobCancel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	jobID := chi.URLParam(r, "jobID")
	job := s.jobManager.Get(jobID)
	if job == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Job not found"})
		return
	}

	job.Cancel()
	json.NewEncoder(w).Encode(map[string]string{"status": "cancelled"})
}

// Helper methods

type Stats struct {
	Sent          int
	Failed        int
	MonthlySent   int
	MonthlyFailed int
}

func (s *Server) getStats() Stats {
	stats := Stats{}

	if s.historyStore == nil {
		return stats
	}

	_, sent, failed, err := s.historyStore.GetStats()
	if err == nil {
		stats.Sent = sent
		stats.Failed = failed
	}

	mSent, mFailed, err := s.historyStore.GetMonthlyStats()
	if err == nil {
		stats.MonthlySent = mSent
		stats.MonthlyFailed = mFailed
	}

	return stats
}

func (s *Server) getRecentHistory(limit int) []history.Record {
	if s.historyStore == nil {
		return nil
	}
	records, _ := s.historyStore.GetRecentSends(limit)
	return records
}

func (s *Server) getRecentRuns(limit int) []history.Run {
	if s.historyStore == nil {
		return nil
	}
	runs, _ := s.historyStore.GetRecentRuns(limit)
	return runs
}

func (s *Server) connectMailbox() (*mailbox.Client, error) {
	if s.config == nil {
		return nil, fmt.Errorf("account not configured; complete setup first")
	}
	if err := s.config.ValidateAccount(); err != nil {
		return nil, err
	}
	acct := s.config.Account
	return mailbox.Connect(acct.IMAPServer, acct.IMAPPort, acct.Email, acct.AppPassword)
}

func (s *Server) rosterPath() string {
	if s.config != nil && s.config.RosterPath != "" {
		return s.config.RosterPath
	}
	return config.DefaultRosterPath()
}

// loadRoster returns the executive roster, or an empty one if the file
// does not exist yet.
func (s *Server) loadRoster() *roster.Roster {
	r, err := roster.LoadFromFile(s.rosterPath())
	if err != nil {
		return &roster.Roster{}
	}
	return r
}

func (s *Server) loadExecutives() []roster.Executive {
	return s.loadRoster().Executives
}

func countStatuses(rows []extract.Row) (responded, notResponded, failures int) {
	for _, row := range rows {
		switch thread.Status(row.Status) {
		case thread.StatusResponded:
			responded++
		case thread.StatusNotResponded:
			notResponded++
		default:
			failures++
		}
	}
	return
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}
	err := tmpl.ExecuteTemplate(w, "layout", data)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) renderPartial(w http.ResponseWriter, name string, data interface{}) {
	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}
	// Execute the template directly without layout wrapper
	err := tmpl.Execute(w, data)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) renderWithCSRF(w http.ResponseWriter, r *http.Request, name string, data map[string]interface{}) {
	// Add CSRF token to data
	data["CSRFToken"] = csrf.Token(r)
	data["CSRFField"] = template.HTML(fmt.Sprintf(`<input type="hidden" name="gorilla.csrf.Token" value="%s">`, csrf.Token(r)))

	tmpl, ok := s.templates[name]
	if !ok {
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}
	err := tmpl.ExecuteTemplate(w, "layout", data)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}

// Setup wizard handlers

func (s *Server) handleSetupWelcome(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"Title": "Setup",
		"Step":  "welcome",
	}
	s.renderWithCSRF(w, r, "setup/welcome.html", data)
}

func (s *Server) handleSetupAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method == "POST" {
		account := config.Account{
			Email:       strings.TrimSpace(r.FormValue("email")),
			AppPassword: strings.TrimSpace(r.FormValue("app_password")),
			IMAPServer:  strings.TrimSpace(r.FormValue("imap_server")),
		}
		account.IMAPPort, _ = strconv.Atoi(r.FormValue("imap_port"))

		errors := make(map[string]string)
		if account.Email == "" {
			errors["email"] = "Email is required"
		} else if err := sender.ValidateEmail(account.Email); err != nil {
			errors["email"] = "Please enter a valid email address"
		}
		if account.AppPassword == "" {
			errors["app_password"] = "App password is required"
		}
		if account.IMAPServer == "" {
			account.IMAPServer = "imap.gmail.com"
		}
		if account.IMAPPort == 0 {
			account.IMAPPort = 993
		}

		if len(errors) > 0 {
			data := map[string]interface{}{
				"Title":   "Setup - Account",
				"Step":    "account",
				"Account": account,
				"Errors":  errors,
			}
			s.renderWithCSRF(w, r, "setup/account.html", data)
			return
		}

		// Store credentials in secure server-side session (not cookie)
		session := s.getOrCreateSession(w, r)
		if session == nil {
			http.Error(w, "Session error", http.StatusInternalServerError)
			return
		}
		s.updateSession(r, func(sess *Session) {
			sess.Step = "delivery"
			sess.Account = account
		})
		http.Redirect(w, r, "/setup/delivery", http.StatusFound)
		return
	}

	session := s.getSession(r)
	account := config.Account{
		IMAPServer: "imap.gmail.com",
		IMAPPort:   993,
	}
	if session != nil && session.Account.Email != "" {
		account = session.Account
	}
	data := map[string]interface{}{
		"Title":   "Setup - Account",
		"Step":    "account",
		"Account": account,
	}
	s.renderWithCSRF(w, r, "setup/account.html", data)
}

func (s *Server) handleSetupDelivery(w http.ResponseWriter, r *http.Request) {
	session := s.getSession(r)

	if session == nil || session.Account.Email == "" {
		http.Redirect(w, r, "/setup/account", http.StatusFound)
		return
	}

	if r.Method == "POST" {
		delivery, errMsg := parseDeliveryForm(r, session.Account.Email)
		if errMsg != "" {
			data := map[string]interface{}{
				"Title":    "Setup - Delivery",
				"Step":     "delivery",
				"Account":  session.Account,
				"Delivery": delivery,
				"Error":    errMsg,
			}
			s.renderWithCSRF(w, r, "setup/delivery.html", data)
			return
		}

		// Store delivery config in secure server-side session
		s.updateSession(r, func(sess *Session) {
			sess.Delivery = delivery
			sess.Step = "test"
		})
		http.Redirect(w, r, "/setup/test", http.StatusFound)
		return
	}

	// Default to Gmail SMTP reusing the account credentials
	delivery := session.Delivery
	if delivery.Provider == "" {
		delivery.Provider = "smtp"
		delivery.From = session.Account.Email
		delivery.SMTP.Host = "smtp.gmail.com"
		delivery.SMTP.Port = 465
		delivery.SMTP.Username = session.Account.Email
		delivery.SMTP.Password = session.Account.AppPassword
		delivery.SMTP.UseTLS = true
	}

	data := map[string]interface{}{
		"Title":    "Setup - Delivery",
		"Step":     "delivery",
		"Account":  session.Account,
		"Delivery": delivery,
	}
	s.renderWithCSRF(w, r, "setup/delivery.html", data)
}

func (s *Server) handleSetupTest(w http.ResponseWriter, r *http.Request) {
	session := s.getSession(r)

	if session == nil || session.Account.Email == "" {
		http.Redirect(w, r, "/setup/account", http.StatusFound)
		return
	}
	if session.Delivery.Provider == "" {
		http.Redirect(w, r, "/setup/delivery", http.StatusFound)
		return
	}

	data := map[string]interface{}{
		"Title":    "Setup - Test",
		"Step":     "test",
		"Account":  session.Account,
		"Delivery": session.Delivery,
	}
	s.renderWithCSRF(w, r, "setup/test.html", data)
}

func (s *Server) handleSetupTestSend(w http.ResponseWriter, r *http.Request) {
	session := s.getSession(r)

	if session == nil || session.Delivery.Provider == "" {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`<div class="text-red-600">Delivery not configured. Please go back to the delivery step.</div>`))
		return
	}

	// Create the sender with the session config
	snd, err := sender.NewSender(session.Delivery)
	if err != nil {
		w.Write([]byte(fmt.Sprintf(`
			<div class="bg-red-100 border border-red-400 text-red-700 px-4 py-3 rounded">
				<strong>Configuration error:</strong> %s
				<p class="mt-2 text-sm">Please check your delivery settings and try again.</p>
			</div>
		`, template.HTMLEscapeString(err.Error()))))
		return
	}

	// Send test email
	testMsg := sender.Message{
		To:      session.Account.Email,
		From:    session.Delivery.From,
		Subject: "Outreach Test Email",
		Body: `Hello,

This is a test email from Outreach to verify your delivery configuration is working correctly.

If you received this email, your setup is complete and you're ready to start sending campaigns!

Best,
Outreach`,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result := snd.Send(ctx, testMsg)
	if !result.Success {
		errMsg := "Unknown error"
		if result.Error != nil {
			errMsg = result.Error.Error()
		}
		w.Write([]byte(fmt.Sprintf(`
			<div class="bg-red-100 border border-red-400 text-red-700 px-4 py-3 rounded">
				<strong>Test failed:</strong> %s
				<p class="mt-2 text-sm">Please check your delivery configuration and try again.</p>
			</div>
			<div class="mt-4">
				<a href="/setup/delivery" class="text-indigo-600 hover:text-indigo-800 font-medium">
					Back to Delivery Settings
				</a>
			</div>
		`, template.HTMLEscapeString(errMsg))))
		return
	}

	w.Write([]byte(`
		<div class="bg-green-100 border border-green-400 text-green-700 px-4 py-3 rounded">
			<strong>Success!</strong> Test email sent to your address.
			<p class="mt-2 text-sm">Check your inbox (and spam folder) for the test message.</p>
		</div>
		<div class="mt-4">
			<a href="/setup/complete" class="inline-flex items-center px-6 py-3 bg-indigo-600 text-white font-medium rounded-md hover:bg-indigo-700">
				Complete Setup
			</a>
		</div>
	`))
}

func (s *Server) handleSetupComplete(w http.ResponseWriter, r *http.Request) {
	session := s.getSession(r)

	if session == nil || session.Account.Email == "" || session.Delivery.Provider == "" {
		http.Redirect(w, r, "/setup", http.StatusFound)
		return
	}

	cfg := &config.Config{
		Account:  session.Account,
		Delivery: session.Delivery,
		Options: config.Options{
			Template:  "generic",
			MaxEmails: 3000,
		},
	}

	if err := config.Save(s.configPath, cfg); err != nil {
		data := map[string]interface{}{
			"Title": "Setup - Error",
			"Error": err.Error(),
		}
		s.renderWithCSRF(w, r, "setup/complete.html", data)
		return
	}

	// Update server's config reference
	s.config = cfg

	// Clear session - credentials are now saved to config file
	s.clearSession(w, r)

	data := map[string]interface{}{
		"Title":   "Setup Complete",
		"Step":    "complete",
		"Account": session.Account,
	}
	s.renderWithCSRF(w, r, "setup/complete.html", data)
}

// Secure session helpers - credentials stored server-side only
// Cookie contains only an opaque session ID, never credentials

func (s *Server) getOrCreateSession(w http.ResponseWriter, r *http.Request) *Session {
	// Check for existing session
	cookie, err := r.Cookie("outreach_session")
	if err == nil && cookie.Value != "" {
		session := s.sessions.Get(cookie.Value)
		if session != nil {
			return session
		}
	}

	// Create new session
	sessionID, err := s.sessions.Create()
	if err != nil {
		return nil
	}

	// Set secure session cookie (ID only, no credentials)
	http.SetCookie(w, &http.Cookie{
		Name:     "outreach_session",
		Value:    sessionID,
		Path:     "/",
		MaxAge:   1800, // 30 minutes
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		// Note: Secure flag omitted for localhost HTTP; add for production HTTPS
	})

	return s.sessions.Get(sessionID)
}

func (s *Server) getSession(r *http.Request) *Session {
	cookie, err := r.Cookie("outreach_session")
	if err != nil || cookie.Value == "" {
		return nil
	}
	return s.sessions.Get(cookie.Value)
}

func (s *Server) updateSession(r *http.Request, updateFn func(*Session)) bool {
	cookie, err := r.Cookie("outreach_session")
	if err != nil || cookie.Value == "" {
		return false
	}
	return s.sessions.Update(cookie.Value, updateFn)
}

func (s *Server) clearSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("outreach_session")
	if err == nil && cookie.Value != "" {
		s.sessions.Delete(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "outreach_session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
