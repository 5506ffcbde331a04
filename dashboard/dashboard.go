// Package dashboard serves a small status page over HTTP.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/carlosfalai/claude-always-on/store"
)

const shutdownTimeout = 5 * time.Second

// Server renders daemon status for a browser and for scripts.
type Server struct {
	echo      *echo.Echo
	store     *store.Store
	userID    int64
	addr      string
	startTime time.Time
	logger    zerolog.Logger
}

// NewServer builds the dashboard on its own echo instance.
func NewServer(st *store.Store, userID int64, addr string, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:      e,
		store:     st,
		userID:    userID,
		addr:      addr,
		startTime: time.Now(),
		logger:    logger.With().Str("component", "dashboard").Logger(),
	}

	e.GET("/", s.handleIndex)
	e.GET("/api/status", s.handleStatus)

	return s
}

// Start serves until ctx is cancelled. Blocking; callers run it in a
// goroutine.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info().Str("addr", s.addr).Msg("Dashboard listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("dashboard server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	s.logger.Info().Msg("Dashboard stopped")
	return nil
}

type statusResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Memories      int64             `json:"memories"`
	Goals         int64             `json:"goals"`
	Conversations int64             `json:"conversations"`
	LastCheckIn   *store.CheckInLog `json:"last_check_in,omitempty"`
}

func (s *Server) handleStatus(c echo.Context) error {
	stats, err := s.store.Stats(c.Request().Context(), s.userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load stats")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load stats")
	}

	return c.JSON(http.StatusOK, statusResponse{
		Status:        "online",
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Memories:      stats.Memories,
		Goals:         stats.Goals,
		Conversations: stats.Conversations,
		LastCheckIn:   stats.LastCheckIn,
	})
}

func (s *Server) handleIndex(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := s.store.Stats(ctx, s.userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load stats")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load stats")
	}
	logs, err := s.store.RecentCheckInLogs(ctx, s.userID, 10)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load check-in logs")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load check-in logs")
	}
	goals, err := s.store.Goals(ctx, s.userID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load goals")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load goals")
	}

	lastCheckIn := "Never"
	if stats.LastCheckIn != nil {
		lastCheckIn = stats.LastCheckIn.CreatedAt.Format(time.RFC1123)
	}

	var goalRows string
	for _, g := range goals {
		goalRows += fmt.Sprintf("<li>%s <em>(%s)</em></li>", html.EscapeString(g.Description), g.Progress)
	}
	if goalRows == "" {
		goalRows = "<li>No goals yet</li>"
	}

	var logRows string
	for _, l := range logs {
		logRows += fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%s</td></tr>",
			l.CreatedAt.Format("Jan 02 15:04"), l.Kind, l.Action)
	}
	if logRows == "" {
		logRows = "<tr><td colspan=3>No check-ins yet</td></tr>"
	}

	html := fmt.Sprintf(indexTemplate,
		time.Since(s.startTime).Round(time.Second),
		stats.Memories, stats.Goals, stats.Conversations,
		lastCheckIn, goalRows, logRows)

	return c.HTML(http.StatusOK, html)
}

const indexTemplate = `<!DOCTYPE html>
<html>
<head>
<title>Always-On Assistant</title>
<meta charset="UTF-8">
<meta http-equiv="refresh" content="30">
<style>
body { font-family: -apple-system, sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; background: #111; color: #eee; }
h1 { font-size: 1.4rem; } h2 { font-size: 1.1rem; margin-top: 2rem; }
table { width: 100%%; border-collapse: collapse; }
td, th { padding: 0.3rem 0.6rem; border-bottom: 1px solid #333; text-align: left; }
.ok { color: #5c5; }
</style>
</head>
<body>
<h1>Always-On Assistant <span class="ok">● online</span></h1>
<p>Uptime: %s</p>
<h2>Stats</h2>
<table>
<tr><td>Memories</td><td>%d</td></tr>
<tr><td>Goals</td><td>%d</td></tr>
<tr><td>Conversation turns</td><td>%d</td></tr>
<tr><td>Last check-in</td><td>%s</td></tr>
</table>
<h2>Goals</h2>
<ul>%s</ul>
<h2>Recent check-ins</h2>
<table>
<tr><th>Time</th><th>Kind</th><th>Action</th></tr>
%s
</table>
</body>
</html>`
