package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"moneta/internal/handlers"
	"moneta/internal/logger"
	"moneta/internal/middleware"
	"moneta/internal/models"
	"moneta/internal/parser"
	"moneta/internal/services"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB      *gorm.DB
	Router  *gin.Engine
	Uploads services.UploadServicer
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a
// single test. A single connection keeps the background pipeline and the
// request handlers serialized.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	allModels := []interface{}{
		&models.Upload{},
		&models.Merchant{},
		&models.Category{},
		&models.Transaction{},
		&models.Embedding{},
		&models.ChatThread{},
		&models.ChatMessage{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// setupApp creates a full application stack without any LLM backend:
// categorization falls back to rules and chat answers through SQL only.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	categoryService := services.NewCategoryService(db)
	if err := categoryService.Seed(); err != nil {
		t.Fatalf("failed to seed categories: %v", err)
	}
	categorizer := services.NewCategorizer(nil, services.DefaultCategories)
	merchantService := services.NewMerchantService(db, categorizer, categoryService, nil)
	embeddingService := services.NewEmbeddingService(db, nil)
	statementParser := parser.New(parser.KeyConfig{WithCard: true})
	uploadService := services.NewUploadService(db, statementParser, merchantService, embeddingService)
	transactionService := services.NewTransactionService(db)
	chatService := services.NewChatService(db, nil, nil, embeddingService, services.ChatConfig{
		ContextTurns:    5,
		ContextMaxChars: 4000,
		DefaultTopK:     8,
	})

	uploadHandler := handlers.NewUploadHandler(uploadService)
	merchantHandler := handlers.NewMerchantHandler(merchantService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	chatHandler := handlers.NewChatHandler(chatService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")
	v1.Use(middleware.APITokenAuth(""))

	uploads := v1.Group("/uploads")
	uploads.POST("", uploadHandler.Upload)
	uploads.GET("/:id", uploadHandler.GetStatus)

	merchants := v1.Group("/merchants")
	merchants.GET("", merchantHandler.List)
	merchants.PATCH("/:id", merchantHandler.UpdateCategory)

	v1.GET("/categories", categoryHandler.List)
	v1.GET("/transactions", transactionHandler.List)

	chat := v1.Group("/chat")
	chat.POST("", chatHandler.Ask)
	chat.POST("/threads", chatHandler.CreateThread)
	chat.GET("/threads", chatHandler.ListThreads)
	chat.GET("/threads/:id", chatHandler.GetThread)
	chat.PATCH("/threads/:id", chatHandler.UpdateThread)
	chat.DELETE("/threads/:id", chatHandler.DeleteThread)
	chat.GET("/threads/:id/messages", chatHandler.ListMessages)

	return &testApp{DB: db, Router: router, Uploads: uploadService}
}

// request makes a JSON request to the test router.
func (app *testApp) request(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// uploadFile posts a statement file as multipart form data.
func (app *testApp) uploadFile(t *testing.T, filename string, content []byte, generateEmbeddings bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create file part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write file part: %v", err)
	}
	if err := writer.WriteField("generate_embeddings", fmt.Sprintf("%t", generateEmbeddings)); err != nil {
		t.Fatalf("failed to write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/uploads", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// buildStatement creates an xlsx statement with a preamble, the standard
// header row, and the given rows.
func buildStatement(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	all := append([][]interface{}{
		{"Account statement"},
		{"Date", "Details", "GEL", "USD", "EUR", "GBP"},
	}, rows...)
	for i, row := range all {
		for j, cell := range row {
			cellName, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("bad cell coordinates: %v", err)
			}
			if err := f.SetCellValue(sheet, cellName, cell); err != nil {
				t.Fatalf("failed to set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}
	return buf.Bytes()
}
