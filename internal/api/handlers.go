package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"momentum-screener/internal/auth"
	"momentum-screener/internal/database"
	"momentum-screener/internal/marketdata"
	"momentum-screener/internal/vault"
)

// handleHealth reports service and dependency health
func (s *Server) handleHealth(c *gin.Context) {
	health := gin.H{"status": "ok"}
	if s.repo != nil {
		if err := s.repo.HealthCheck(c.Request.Context()); err != nil {
			health["status"] = "degraded"
			health["database"] = err.Error()
		} else {
			health["database"] = "ok"
		}
	}
	c.JSON(http.StatusOK, health)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleLogin authenticates the operator and returns a JWT
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, token)
}

// handleListSymbols returns the provider's symbol universe
func (s *Server) handleListSymbols(c *gin.Context) {
	symbols, err := s.screener.Symbols(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols, "count": len(symbols)})
}

type analyzeRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	BarLimit int    `json:"bar_limit"`
}

// handleAnalyze scores the momentum pattern for one symbol
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if req.BarLimit <= 0 {
		req.BarLimit = s.dataCfg.BarLimit
	}

	result, err := s.screener.AnalyzeSymbol(c.Request.Context(), strings.ToUpper(req.Symbol), req.BarLimit)
	if err != nil {
		if errors.Is(err, marketdata.ErrSymbolNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "symbol not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type simulateRequest struct {
	Symbol         string  `json:"symbol" binding:"required"`
	BarLimit       int     `json:"bar_limit"`
	InitialCapital float64 `json:"initial_capital"`
}

// handleSimulate runs a day-by-day simulation for one symbol
func (s *Server) handleSimulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if req.BarLimit <= 0 {
		req.BarLimit = s.dataCfg.BarLimit
	}

	result, err := s.screener.SimulateSymbol(c.Request.Context(), strings.ToUpper(req.Symbol), req.BarLimit, req.InitialCapital)
	if err != nil {
		if errors.Is(err, marketdata.ErrSymbolNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "symbol not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type scanRequest struct {
	Symbols        []string `json:"symbols"`
	BarLimit       int      `json:"bar_limit"`
	InitialCapital float64  `json:"initial_capital"`
}

// handleStartScan launches an async batch scan and returns the job ID
func (s *Server) handleStartScan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.BarLimit <= 0 {
		req.BarLimit = s.dataCfg.BarLimit
	}
	for i, sym := range req.Symbols {
		req.Symbols[i] = strings.ToUpper(sym)
	}

	jobID, err := s.screener.StartScan(c.Request.Context(), req.Symbols, req.BarLimit, req.InitialCapital)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
}

// handleGetScan returns live job state, falling back to persisted runs
func (s *Server) handleGetScan(c *gin.Context) {
	id := c.Param("id")
	if job := s.screener.Job(id); job != nil {
		c.JSON(http.StatusOK, job)
		return
	}

	if s.repo != nil {
		run, err := s.repo.GetScanRun(c.Request.Context(), id)
		if err == nil {
			c.JSON(http.StatusOK, run)
			return
		}
		if !errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
}

// handleCancelScan requests cancellation of a running scan
func (s *Server) handleCancelScan(c *gin.Context) {
	id := c.Param("id")
	if !s.screener.CancelScan(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no running scan with that id"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": id, "cancelling": true})
}

// ============================================================================
// WATCHLIST
// ============================================================================

func (s *Server) handleGetWatchlist(c *gin.Context) {
	entries, err := s.repo.GetWatchlist(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"watchlist": entries})
}

type watchlistRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Note   string `json:"note"`
}

func (s *Server) handleAddWatchlist(c *gin.Context) {
	var req watchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	entry := &database.WatchlistEntry{
		Symbol: strings.ToUpper(req.Symbol),
		Note:   req.Note,
	}
	if err := s.repo.AddWatchlistEntry(c.Request.Context(), entry); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleRemoveWatchlist(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if err := s.repo.RemoveWatchlistEntry(c.Request.Context(), symbol); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "symbol not on watchlist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "removed": true})
}

// ============================================================================
// HISTORY
// ============================================================================

func (s *Server) handleRecentResults(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	results, err := s.repo.GetRecentScanResults(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) handleRecentRuns(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	runs, err := s.repo.GetRecentScanRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// ============================================================================
// PROVIDER CREDENTIALS
// ============================================================================

func (s *Server) handleGetCredentials(c *gin.Context) {
	provider := c.Param("provider")
	creds, err := s.vaultClient.GetCredentials(c.Request.Context(), provider)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	// Never echo the full key back
	masked := creds.APIKey
	if len(masked) > 4 {
		masked = "****" + masked[len(masked)-4:]
	}
	c.JSON(http.StatusOK, gin.H{
		"provider": creds.Provider,
		"api_key":  masked,
		"base_url": creds.BaseURL,
	})
}

func (s *Server) handleStoreCredentials(c *gin.Context) {
	var creds vault.ProviderCredentials
	if err := c.ShouldBindJSON(&creds); err != nil || creds.Provider == "" || creds.APIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "provider and api_key are required"})
		return
	}
	if err := s.vaultClient.StoreCredentials(c.Request.Context(), creds); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"provider": creds.Provider, "stored": true})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
