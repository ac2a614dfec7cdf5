package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geminigate/internal/config"
	"geminigate/internal/models"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

type fileStore interface {
	UploadFromPath(ctx context.Context, path string, cfg *genai.UploadFileConfig) (*genai.File, error)
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ObserveFunc is called once per provider step with its duration and result.
type ObserveFunc func(op string, elapsed time.Duration, err error)

// Service is the generation client shared by all handlers. It is built once
// at startup and not mutated afterwards.
type Service struct {
	files   fileStore
	models  contentGenerator
	chat    model.BaseChatModel
	model   string
	observe ObserveFunc
}

// NewService builds the genai client used for file-grounded generation and the
// chat model used for plain text prompts.
func NewService(ctx context.Context, cfg *config.Config, observe ObserveFunc) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.BasicConfig.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	chat, err := newChatModel(ctx, cfg, client)
	if err != nil {
		return nil, err
	}
	return newService(client.Files, client.Models, chat, cfg.BasicConfig.Model, observe), nil
}

func newService(files fileStore, gen contentGenerator, chat model.BaseChatModel, modelName string, observe ObserveFunc) *Service {
	if modelName == "" {
		modelName = config.DefaultModel
	}
	if observe == nil {
		observe = func(string, time.Duration, error) {}
	}
	return &Service{
		files:   files,
		models:  gen,
		chat:    chat,
		model:   modelName,
		observe: observe,
	}
}

func newChatModel(ctx context.Context, cfg *config.Config, client *genai.Client) (model.BaseChatModel, error) {
	provider := cfg.BasicConfig.TextProvider
	provCfg := cfg.Providers[provider]
	modelName := provCfg.Model

	var (
		chat model.BaseChatModel
		err  error
	)
	switch provider {
	case "", "gemini":
		if modelName == "" {
			modelName = cfg.BasicConfig.Model
		}
		chat, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
	case "openai":
		if modelName == "" {
			return nil, errors.New("providers.openai.model must be configured")
		}
		chat, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   modelName,
			APIKey:  provCfg.APIKey,
		})
	case "claude":
		if modelName == "" {
			return nil, errors.New("providers.claude.model must be configured")
		}
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chat, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid text provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return chat, nil
}

// Model returns the model name used for file-grounded generation.
func (s *Service) Model() string {
	return s.model
}

// GenerateFromText sends prompt as a single user message.
func (s *Service) GenerateFromText(ctx context.Context, prompt string) (string, error) {
	res, err := s.generateText(ctx, models.GenerationRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// GenerateFromFile uploads the file at path to the provider's file store and
// asks the model about it. Either step failing yields an *UpstreamError.
func (s *Service) GenerateFromFile(ctx context.Context, path, mimeType, prompt string) (string, error) {
	ref, err := s.uploadFile(ctx, path, mimeType)
	if err != nil {
		return "", err
	}
	res, err := s.generateContent(ctx, models.GenerationRequest{Prompt: prompt, File: ref})
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

func (s *Service) generateText(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	start := time.Now()
	resp, err := s.chat.Generate(ctx, []*schema.Message{schema.UserMessage(req.Prompt)})
	s.observe(OpGenerate, time.Since(start), err)
	if err != nil {
		return nil, upstream(OpGenerate, err)
	}
	if resp == nil {
		return &models.GenerationResult{}, nil
	}
	return &models.GenerationResult{Output: resp.Content}, nil
}

func (s *Service) uploadFile(ctx context.Context, path, mimeType string) (*models.FileRef, error) {
	start := time.Now()
	file, err := s.files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err == nil && file == nil {
		err = errors.New("provider returned no file")
	}
	s.observe(OpUpload, time.Since(start), err)
	if err != nil {
		return nil, upstream(OpUpload, err)
	}
	confirmed := file.MIMEType
	if confirmed == "" {
		confirmed = mimeType
	}
	return &models.FileRef{URI: file.URI, MimeType: confirmed}, nil
}

func (s *Service) generateContent(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.File != nil {
		parts = append(parts, genai.NewPartFromURI(req.File.URI, req.File.MimeType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	start := time.Now()
	resp, err := s.models.GenerateContent(ctx, s.model, contents, nil)
	s.observe(OpGenerate, time.Since(start), err)
	if err != nil {
		return nil, upstream(OpGenerate, err)
	}
	if resp == nil {
		return &models.GenerationResult{}, nil
	}
	return &models.GenerationResult{Output: resp.Text()}, nil
}
