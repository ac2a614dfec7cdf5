package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"geminigate/internal/filetype"
	"geminigate/internal/service/ai"
	"geminigate/internal/upload"
)

// Generator is the provider façade the handlers depend on.
type Generator interface {
	GenerateFromText(ctx context.Context, prompt string) (string, error)
	GenerateFromFile(ctx context.Context, path, mimeType, prompt string) (string, error)
}

// Handler wires HTTP routes to the generation client.
type Handler struct {
	generator Generator
	uploader  *upload.Uploader
	logger    *slog.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(generator Generator, uploader *upload.Uploader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		generator: generator,
		uploader:  uploader,
		logger:    logger,
	}
}

// fileRoute describes what differs between the upload routes.
type fileRoute struct {
	name          string
	field         string
	missingError  string
	defaultPrompt string
	// nil accepts any file
	allowlist *filetype.Allowlist
	// response key carrying the validated extension
	typeKey string
}

var (
	imageRoute = fileRoute{
		name:          "image",
		field:         "image",
		missingError:  "Image file is required",
		defaultPrompt: "Describe this uploaded image",
	}
	documentRoute = fileRoute{
		name:          "document",
		field:         "document",
		missingError:  "Document file is required",
		defaultPrompt: "Analyze this document",
		allowlist:     &filetype.Documents,
		typeKey:       "documentType",
	}
	audioRoute = fileRoute{
		name:          "audio",
		field:         "audio",
		missingError:  "Audio file is required",
		defaultPrompt: "Transcribe and analyze this audio",
		allowlist:     &filetype.Audio,
		typeKey:       "audioType",
	}
)

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.index)
	router.POST("/generate-text", h.generateText)
	for _, route := range []fileRoute{imageRoute, documentRoute, audioRoute} {
		router.POST("/generate-from-"+route.name, h.uploader.Single(route.field), h.generateFromFile(route))
	}
}

func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Gemini AI Chatbot API is running",
		"endpoints": gin.H{
			"text":     "POST /generate-text",
			"image":    "POST /generate-from-image",
			"document": "POST /generate-from-document",
			"audio":    "POST /generate-from-audio",
		},
	})
}

type textRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) generateText(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}
	output, err := h.generator.GenerateFromText(c.Request.Context(), req.Prompt)
	if err != nil {
		h.upstreamFailed(c, "text", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"output": output})
}

func (h *Handler) generateFromFile(route fileRoute) gin.HandlerFunc {
	return func(c *gin.Context) {
		handle, ok := upload.HandleFromContext(c)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": route.missingError})
			return
		}
		// an explicitly empty prompt is forwarded as-is
		prompt, ok := c.GetPostForm("prompt")
		if !ok {
			prompt = route.defaultPrompt
		}

		var ext string
		if route.allowlist != nil {
			var allowed bool
			ext, allowed = route.allowlist.Check(handle.FileName)
			if !allowed {
				c.JSON(http.StatusBadRequest, gin.H{"error": route.allowlist.Message()})
				return
			}
		}

		output, err := h.generator.GenerateFromFile(c.Request.Context(), handle.Path, handle.MimeType, prompt)
		if err != nil {
			h.upstreamFailed(c, route.name, err)
			return
		}
		resp := gin.H{"output": output}
		if route.typeKey != "" {
			resp[route.typeKey] = ext
			resp["fileName"] = handle.FileName
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *Handler) upstreamFailed(c *gin.Context, route string, err error) {
	op := "unknown"
	var upErr *ai.UpstreamError
	if errors.As(err, &upErr) {
		op = upErr.Op
	}
	h.logger.Error("generation failed", "route", route, "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
