package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/MigzCtrl/TireOps-sub000/internal/extract"
	"github.com/MigzCtrl/TireOps-sub000/internal/importer"
	"github.com/MigzCtrl/TireOps-sub000/internal/inventory"
	"github.com/MigzCtrl/TireOps-sub000/internal/match"
	"github.com/MigzCtrl/TireOps-sub000/internal/store"
	"github.com/MigzCtrl/TireOps-sub000/internal/util"
)

// Extractor is the outbound boundary to the file extraction service.
type Extractor interface {
	Analyze(ctx context.Context, file io.Reader, filename string, importType extract.ImportType) (extract.Result, error)
}

// Config defines server dependencies.
type Config struct {
	DBPath         string
	AllowedOrigins []string
	SilentDB       bool
	ExtractConfig  extract.Config
	Extractor      Extractor
	SessionTTL     time.Duration
	SweepInterval  time.Duration
	DefaultShopID  uint
}

// Server wires HTTP handlers with persistence, extraction and the
// reconciliation pipeline.
type Server struct {
	db             *store.Database
	sessions       *importer.Manager
	reconciler     *inventory.Reconciler
	extractor      Extractor
	notifier       *ImportNotifier
	allowedOrigins []string
	defaultShopID  uint
	sessionTTL     time.Duration
	sweepInterval  time.Duration
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	extractor := cfg.Extractor
	if extractor == nil {
		client, err := extract.NewClient(cfg.ExtractConfig)
		if err != nil {
			return nil, err
		}
		extractor = client
	}

	shopID := cfg.DefaultShopID
	if shopID == 0 {
		shopID = 1
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = 10 * time.Minute
	}

	server := &Server{
		db:             db,
		sessions:       importer.NewManager(),
		reconciler:     inventory.NewReconciler(db),
		extractor:      extractor,
		notifier:       NewImportNotifier(),
		allowedOrigins: cfg.AllowedOrigins,
		defaultShopID:  shopID,
		sessionTTL:     ttl,
		sweepInterval:  sweep,
	}

	go server.sweepLoop()
	return server, nil
}

func (s *Server) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		s.sessions.Sweep(s.sessionTTL)
	}
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Shop-ID"}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api/imports")
	{
		customers := api.Group("/customers/sessions")
		customers.POST("", s.handleCreateSession)
		customers.GET("/:id", s.handleGetSession)
		customers.DELETE("/:id", s.handleCancelSession)
		customers.POST("/:id/analyze", s.handleAnalyzeCustomers)
		customers.POST("/:id/rows", s.handleAddRow)
		customers.PUT("/:id/rows/:index", s.handleUpdateRow)
		customers.DELETE("/:id/rows/:index", s.handleDeleteRow)
		customers.POST("/:id/commit", s.handleCommitSession)

		api.POST("/inventory/analyze", s.handleAnalyzeInventory)
		api.POST("/inventory/commit", s.handleCommitInventory)

		api.GET("/history", s.handleHistory)
		api.GET("/stream", s.handleStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	shopID := s.shopID(c)
	customers, err := s.db.CountCustomers(shopID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items, err := s.db.CountInventoryItems(shopID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"shop_id":         shopID,
		"customers":       customers,
		"inventory_items": items,
		"live_sessions":   s.sessions.Count(),
	})
}

func (s *Server) handleCreateSession(c *gin.Context) {
	session := s.sessions.Create(s.shopID(c))
	logrus.WithFields(logrus.Fields{
		"session": session.ID,
		"shop_id": session.ShopID,
	}).Info("import session opened")
	c.JSON(http.StatusCreated, SessionFromModel(session))
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, SessionFromModel(session))
}

func (s *Server) handleCancelSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	session.Cancel()
	s.sessions.Remove(session.ID)
	logrus.WithField("session", session.ID).Info("import session cancelled")
	s.notifier.Broadcast(ImportEvent{Type: "cancelled", SessionID: session.ID, ShopID: session.ShopID})
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) handleAnalyzeCustomers(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	if err := session.BeginAnalysis(); err != nil {
		status := http.StatusConflict
		if errors.Is(err, importer.ErrSessionClosed) {
			status = http.StatusGone
		}
		s.renderError(c, status, err)
		return
	}
	defer session.EndAnalysis()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.renderError(c, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	defer src.Close()

	timer := util.StartTimer()
	result, err := s.extractor.Analyze(c.Request.Context(), src, fileHeader.Filename, extract.TypeCustomers)
	if err != nil {
		// A failed fresh attempt clears the empty staged set and the
		// method tag; a failed re-upload leaves prior staged work alone.
		if len(session.Rows()) == 0 {
			session.ResetStaged()
		}
		logrus.WithError(err).WithField("session", session.ID).Warn("customer extraction failed")
		s.renderError(c, http.StatusBadGateway, err)
		return
	}

	stats, err := session.Ingest(result.Customers, result.Method)
	if err != nil {
		s.renderError(c, http.StatusGone, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"session":    session.ID,
		"method":     result.Method,
		"extracted":  len(result.Customers),
		"added":      stats.Added,
		"merged":     stats.Merged,
		"dropped":    stats.Dropped,
		"elapsed_ms": timer.ElapsedMs(),
	}).Info("customer extraction folded into session")

	s.broadcastSession(session, "staged")
	c.JSON(http.StatusOK, AnalyzeResponse{
		Session: SessionFromModel(session),
		Stats:   stats,
		Method:  result.Method,
	})
}

func (s *Server) handleAddRow(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	index, err := session.AddBlankRow()
	if err != nil {
		s.renderError(c, http.StatusGone, err)
		return
	}
	s.broadcastSession(session, "edited")
	c.JSON(http.StatusCreated, gin.H{"index": index})
}

func (s *Server) handleUpdateRow(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, errors.New("invalid row index"))
		return
	}
	var req RowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	row := match.Candidate{Name: req.Name, Phone: req.Phone, Email: req.Email, Vehicle: req.Vehicle}
	if err := session.UpdateRow(index, row); err != nil {
		s.renderRowError(c, err)
		return
	}
	s.broadcastSession(session, "edited")
	c.JSON(http.StatusOK, SessionFromModel(session))
}

func (s *Server) handleDeleteRow(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, errors.New("invalid row index"))
		return
	}
	if err := session.DeleteRow(index); err != nil {
		s.renderRowError(c, err)
		return
	}
	s.broadcastSession(session, "edited")
	c.JSON(http.StatusOK, SessionFromModel(session))
}

func (s *Server) handleCommitSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	rows, err := session.CommitRows()
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, importer.ErrSessionClosed) {
			status = http.StatusGone
		}
		s.renderError(c, status, err)
		return
	}

	customers := make([]store.Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, store.Customer{
			ShopID: session.ShopID,
			Name:   row.Name,
			Phone:  row.Phone,
			Email:  row.Email,
		})
	}

	created, err := s.db.CreateCustomers(customers)
	if err != nil {
		// The whole batch aborts; the persistence error surfaces verbatim.
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	// Vehicles link to created customers by position. Creation order is
	// preserved by the batch insert; a store without that guarantee would
	// need a client-generated correlation id instead.
	vehicles := make([]store.Vehicle, 0)
	for i, row := range rows {
		if row.Vehicle == nil || i >= len(created) {
			continue
		}
		v := row.Vehicle
		vehicles = append(vehicles, store.Vehicle{
			CustomerID: created[i].ID,
			Year:       v.Year,
			Make:       v.Make,
			Model:      v.Model,
			Trim:       v.Trim,
			TireSize:   v.TireSize,
			Plate:      v.Plate,
			VIN:        v.VIN,
		})
	}
	if err := s.db.CreateVehicles(vehicles); err != nil {
		logrus.WithError(err).WithField("session", session.ID).Warn("vehicle sub-insert failed")
		vehicles = nil
	}

	if err := s.db.CreateImportRecord(&store.ImportRecord{
		ShopID:     session.ShopID,
		ImportType: "customers",
		Method:     session.Method(),
		RowCount:   len(created),
	}); err != nil {
		logrus.WithError(err).Warn("write import record")
	}

	session.MarkCommitted()
	s.sessions.Remove(session.ID)
	logrus.WithFields(logrus.Fields{
		"session":  session.ID,
		"created":  len(created),
		"vehicles": len(vehicles),
	}).Info("customer import committed")
	s.notifier.Broadcast(ImportEvent{
		Type:      "committed",
		SessionID: session.ID,
		ShopID:    session.ShopID,
		RowCount:  len(created),
	})

	c.JSON(http.StatusOK, CommitResponse{Created: len(created), Vehicles: len(vehicles)})
}

func (s *Server) handleAnalyzeInventory(c *gin.Context) {
	shopID := s.shopID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.renderError(c, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	defer src.Close()

	timer := util.StartTimer()
	result, err := s.extractor.Analyze(c.Request.Context(), src, fileHeader.Filename, extract.TypeInventory)
	if err != nil {
		logrus.WithError(err).Warn("inventory extraction failed")
		s.renderError(c, http.StatusBadGateway, err)
		return
	}

	hasDuplicates, labels, err := s.reconciler.CheckForDuplicates(shopID, result.Inventory)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"shop_id":    shopID,
		"method":     result.Method,
		"extracted":  len(result.Inventory),
		"duplicates": len(labels),
		"elapsed_ms": timer.ElapsedMs(),
	}).Info("inventory extraction analyzed")

	c.JSON(http.StatusOK, InventoryAnalyzeResponse{
		Items:         result.Inventory,
		Method:        result.Method,
		HasDuplicates: hasDuplicates,
		Duplicates:    labels,
	})
}

func (s *Server) handleCommitInventory(c *gin.Context) {
	shopID := s.shopID(c)

	var req InventoryCommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if len(req.Items) == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("no inventory rows to commit"))
		return
	}
	if req.Mode != inventory.ModeAdd && req.Mode != inventory.ModeMerge {
		s.renderError(c, http.StatusBadRequest, errors.New("mode must be add or merge"))
		return
	}

	summary, err := s.reconciler.Commit(shopID, req.Items, req.Mode)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	if err := s.db.CreateImportRecord(&store.ImportRecord{
		ShopID:     shopID,
		ImportType: "inventory",
		Method:     string(req.Mode),
		RowCount:   summary.Inserted + summary.Updated,
	}); err != nil {
		logrus.WithError(err).Warn("write import record")
	}

	logrus.WithFields(logrus.Fields{
		"shop_id":  shopID,
		"mode":     req.Mode,
		"inserted": summary.Inserted,
		"updated":  summary.Updated,
		"failed":   summary.Failed,
	}).Info("inventory import committed")

	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = 50
	}
	records, err := s.db.ListImportRecords(s.shopID(c), limit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]ImportRecordDTO, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, ImportRecordFromModel(record))
	}
	c.JSON(http.StatusOK, gin.H{"items": dtos})
}

func (s *Server) handleStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("import websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("import websocket closed")
			} else {
				logrus.WithError(err).Warn("import websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) session(c *gin.Context) (*importer.Session, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("session id required"))
		return nil, false
	}
	session, err := s.sessions.Get(id)
	if err != nil {
		s.renderError(c, http.StatusNotFound, err)
		return nil, false
	}
	return session, true
}

func (s *Server) shopID(c *gin.Context) uint {
	if value := strings.TrimSpace(c.GetHeader("X-Shop-ID")); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil && parsed > 0 {
			return uint(parsed)
		}
	}
	return s.defaultShopID
}

func (s *Server) broadcastSession(session *importer.Session, eventType string) {
	s.notifier.Broadcast(ImportEvent{
		Type:       eventType,
		SessionID:  session.ID,
		ShopID:     session.ShopID,
		Commitable: session.CommitableCount(),
		RowCount:   len(session.Rows()),
	})
}

func (s *Server) renderRowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, importer.ErrRowOutOfRange):
		s.renderError(c, http.StatusNotFound, err)
	case errors.Is(err, importer.ErrSessionClosed):
		s.renderError(c, http.StatusGone, err)
	default:
		s.renderError(c, http.StatusInternalServerError, err)
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
